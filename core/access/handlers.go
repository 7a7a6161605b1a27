package access

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/tav360/crm-backend/core/csql"
	"github.com/tav360/crm-backend/core/logger"
)

// APIBuilder is a builder for the authentication API
type APIBuilder struct {
	// DB is the postgres database holding the users table
	DB *csql.DB
	// Secret is the HMAC signing secret for bearer tokens
	Secret string
	// TokenLifetime is the validity period of issued tokens, default is 24h
	TokenLifetime time.Duration
	// If UpdateSchema is true, the users table is created on startup
	UpdateSchema bool
	// AdminEmail and AdminPassword optionally seed a bootstrap admin
	// account. The account is only created if the email does not exist yet.
	AdminEmail    string
	AdminPassword string
}

// API provides the login and identity routes
type API struct {
	db       *csql.DB
	secret   string
	lifetime time.Duration
}

// NewAPI creates the authentication API. Depending on the builder
// settings it creates the users table and seeds the bootstrap admin
// account.
func NewAPI(b *APIBuilder) (*API, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database is missing")
	}
	if len(b.Secret) == 0 {
		return nil, fmt.Errorf("token secret is missing")
	}
	lifetime := b.TokenLifetime
	if lifetime == 0 {
		lifetime = 24 * time.Hour
	}
	a := &API{db: b.DB, secret: b.Secret, lifetime: lifetime}

	if b.UpdateSchema {
		_, err := b.DB.Exec(`CREATE table IF NOT EXISTS ` + b.DB.Schema + `.users (
id bigserial NOT NULL,
email varchar NOT NULL UNIQUE,
password_hash varchar NOT NULL,
full_name varchar,
app_role varchar NOT NULL DEFAULT 'agent',
PRIMARY KEY(id)
);`)
		if err != nil {
			return nil, err
		}
	}
	if len(b.AdminEmail) > 0 && len(b.AdminPassword) > 0 {
		if err := a.seedAdmin(b.AdminEmail, b.AdminPassword); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *API) seedAdmin(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = a.db.Exec(`INSERT INTO `+a.db.Schema+`.users(email,password_hash,full_name,app_role)
VALUES($1,$2,$3,$4) ON CONFLICT (email) DO NOTHING;`,
		email, string(hash), "Administrator", RoleAdmin)
	return err
}

// HandleRoutes adds the authentication routes to the router:
//
//	/auth/login POST
//	/auth/me GET
//	/health GET
func (a *API) HandleRoutes(router *mux.Router) {
	rlog := logger.Default()
	rlog.Debugln("authentication")
	rlog.Debugln("  handle route: /auth/login POST")
	router.HandleFunc("/auth/login", a.loginWithAuth).Methods(http.MethodPost)
	rlog.Debugln("  handle route: /auth/me GET")
	router.HandleFunc("/auth/me", a.currentUserWithAuth).Methods(http.MethodGet)
	rlog.Debugln("  handle route: /health GET")
	router.HandleFunc("/health", health).Methods(http.MethodGet)
}

func (a *API) loginWithAuth(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	var id int64
	var passwordHash string
	var appRole sql.NullString
	err := a.db.QueryRow(`SELECT id, password_hash, app_role FROM `+a.db.Schema+`.users WHERE email=$1;`,
		username).Scan(&id, &passwordHash, &appRole)
	if err == csql.ErrNoRows {
		unauthorized(w)
		return
	}
	if err != nil {
		rlog.WithError(err).Errorln("Error 4821: cannot query user")
		http.Error(w, "Error 4821", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		unauthorized(w)
		return
	}

	token, err := IssueToken(a.secret, a.lifetime, username, appRole.String)
	if err != nil {
		rlog.WithError(err).Errorln("Error 4822: cannot issue token")
		http.Error(w, "Error 4822", http.StatusInternalServerError)
		return
	}

	jsonData, _ := json.Marshal(map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
	w.Header().Set("Content-Type", "application/json")
	w.Write(jsonData)
}

func (a *API) currentUserWithAuth(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	jsonData, _ := json.Marshal(principal)
	w.Header().Set("Content-Type", "application/json")
	w.Write(jsonData)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "Incorrect email or password", http.StatusUnauthorized)
}
