package backend

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tav360/crm-backend/core/logger"
)

const maxUploadSize = 10 << 20 // 10MB

var allowedUploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
}

// handleUploadRoutes adds the file upload route. The route is only
// registered when a file store driver is configured.
func (b *Backend) handleUploadRoutes(router *mux.Router) {
	if b.fileStore == nil {
		return
	}
	logger.Default().Debugln("  handle upload route: /upload POST")

	upload := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			badRequest(w, "file too large, the limit is 10MB")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "missing form field 'file'")
			return
		}
		defer file.Close()

		extension := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedUploadExtensions[extension] {
			badRequest(w, "file type %s is not allowed", extension)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4761: cannot read upload %s", header.Filename)
			http.Error(w, "Error 4761", http.StatusInternalServerError)
			return
		}
		if len(data) > maxUploadSize {
			badRequest(w, "file too large, the limit is 10MB")
			return
		}

		fileID := uuid.New().String()
		key := fileID + extension
		contentType := header.Header.Get("Content-Type")
		fileURL, err := b.fileStore.Store(key, data, contentType)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4762: cannot store upload %s", key)
			http.Error(w, "Error 4762", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.Marshal(map[string]interface{}{
			"file_url": fileURL,
			"file_id":  fileID,
			"filename": header.Filename,
			"size":     len(data),
		})
		writeJSON(w, http.StatusOK, jsonData)
	}
	router.HandleFunc("/upload", upload).Methods(http.MethodPost)
}
