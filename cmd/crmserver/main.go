package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/tav360/crm-backend/core/access"
	"github.com/tav360/crm-backend/core/backend"
	"github.com/tav360/crm-backend/core/backend/filestore"
	"github.com/tav360/crm-backend/core/csql"
	"github.com/tav360/crm-backend/core/logger"
	"github.com/tav360/crm-backend/crm"
)

// Service holds the configuration for this service
//
// use DATABASE_URL="host=localhost port=5432 user=postgres password=docker dbname=tav360_crm sslmode=disable"
type Service struct {
	Postgres           string `env:"DATABASE_URL,required" description:"the connection string for the Postgres DB"`
	Schema             string `env:"SCHEMA,default=public" description:"the database schema"`
	Port               string `env:"PORT,default=8000" description:"the port the server listens on"`
	JWTSecret          string `env:"JWT_SECRET,required" description:"the HMAC signing secret for bearer tokens"`
	JWTExpirationHours int    `env:"JWT_EXPIRATION_HOURS,default=24" description:"validity period of issued tokens"`
	CORSOrigins        string `env:"CORS_ORIGINS,default=*" description:"comma separated list of allowed origins"`
	BackendBaseURL     string `env:"BACKEND_BASE_URL,default=http://localhost:8000" description:"externally visible base URL for file links"`
	PostgrestURL       string `env:"POSTGREST_URL,default=http://postgrest:3000" description:"base URL of the upstream query service"`
	UploadDir          string `env:"UPLOAD_DIR,default=uploads" description:"local directory for uploaded files"`
	S3Bucket           string `env:"S3_BUCKET,default=" description:"S3 bucket for uploaded files, uses the local directory when empty"`
	S3Region           string `env:"S3_REGION,default=eu-central-1"`
	S3AccessID         string `env:"S3_ACCESS_ID,default="`
	S3AccessKey        string `env:"S3_ACCESS_KEY,default="`
	AdminEmail         string `env:"ADMIN_EMAIL,default=" description:"bootstrap admin account email"`
	AdminPassword      string `env:"ADMIN_PASSWORD,default=" description:"bootstrap admin account password"`
	UpdateSchema       bool   `env:"UPDATE_SCHEMA,default=true" description:"create tables on startup"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	logLevel, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.InitLogger(logLevel)
	rlog := logger.Default()

	db := csql.OpenWithSchema(service.Postgres, service.Schema)
	defer db.Close()

	router := mux.NewRouter()
	logger.AddRequestID(router)
	backend.HandleCORS(router, strings.Split(service.CORSOrigins, ","))
	backend.HandleCompression(router)

	api := router.PathPrefix("/api").Subrouter()

	authAPI, err := access.NewAPI(&access.APIBuilder{
		DB:            db,
		Secret:        service.JWTSecret,
		TokenLifetime: time.Duration(service.JWTExpirationHours) * time.Hour,
		UpdateSchema:  service.UpdateSchema,
		AdminEmail:    service.AdminEmail,
		AdminPassword: service.AdminPassword,
	})
	if err != nil {
		panic(err)
	}
	authAPI.HandleRoutes(api)
	api.Use(access.NewJwtMiddleware(&access.JwtMiddlewareBuilder{
		Secret:      service.JWTSecret,
		DB:          db,
		ExemptPaths: []string{"/api/auth/login", "/api/health"},
	}))

	var fileStore filestore.Driver
	if service.S3Bucket != "" {
		fileStore, err = filestore.NewS3(filestore.S3Configuration{
			AccessID:  service.S3AccessID,
			AccessKey: service.S3AccessKey,
			AWSRegion: service.S3Region,
			AWSBucket: service.S3Bucket,
		})
		if err != nil {
			panic(err)
		}
	} else {
		local, err := filestore.NewLocalFilesystem(service.UploadDir, service.BackendBaseURL+"/uploads")
		if err != nil {
			panic(err)
		}
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(service.UploadDir))))
		fileStore = local
	}

	jsonValidator, err := crm.NewJSONValidator()
	if err != nil {
		panic(err)
	}

	backend.New(&backend.Builder{
		DB:            db,
		Router:        api,
		Registry:      crm.NewRegistry(),
		JSONValidator: jsonValidator,
		UpdateSchema:  service.UpdateSchema,
		UpstreamURL:   service.PostgrestURL,
		FileStore:     fileStore,
	})

	rlog.Infoln("listen on port :" + service.Port)
	http.ListenAndServe(":"+service.Port, router)
}
