// Package server is a reference admin endpoint for certadmin. It serves the
// same name-value protocol the client speaks and keeps configuration scopes
// in the SQLite store.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/config"
	"github.com/dukerupert/certadmin/internal/nvpair"
	"github.com/dukerupert/certadmin/internal/transport"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const maxBody = 1 << 20

// Options tune a Server.
type Options struct {
	AllowedOrigins []string
	// BcryptCost is used when hashing secrets. Zero means bcrypt.DefaultCost.
	BcryptCost int
}

type Server struct {
	store  config.Store
	schema Schema
	log    *zap.Logger
	opts   Options
}

func New(store config.Store, schema Schema, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Server{store: store, schema: schema, log: logger.Named("server"), opts: opts}
}

// Seed stores the schema defaults that are not set yet.
func (s *Server) Seed() (int, error) {
	n, err := s.store.SeedSettings(s.schema.Defaults())
	if err != nil {
		return 0, fmt.Errorf("seeding defaults: %w", err)
	}
	return n, nil
}

// HashPassword returns the bcrypt hash stored for users and secret scopes.
func (s *Server) HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// AddUser creates or updates an administrator.
func (s *Server) AddUser(uid, password string) error {
	if uid == "" || password == "" {
		return errors.New("uid and password are required")
	}
	h, err := s.HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.SetUser(uid, h)
}

// Handler returns the routed, authenticated, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/").Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/{destination}", s.handleAdmin).Methods(http.MethodPost)

	// rs/cors treats an empty origin list as "*"; no origins means no CORS.
	if len(s.opts.AllowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type", transport.HeaderRequestID},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.log.Info("stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "ok\n")
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, pass, ok := r.BasicAuth()
		if !ok {
			s.deny(w, r, "missing credentials")
			return
		}
		u, err := s.store.GetUser(uid)
		if err != nil {
			s.deny(w, r, "bad credentials")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pass)) != nil {
			s.deny(w, r, "bad credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) deny(w http.ResponseWriter, r *http.Request, msg string) {
	s.log.Warn("authentication failed",
		zap.String("request_id", r.Header.Get(transport.HeaderRequestID)),
		zap.String("remote", r.RemoteAddr))
	w.Header().Set("WWW-Authenticate", `Basic realm="certadmin"`)
	http.Error(w, msg, http.StatusUnauthorized)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	dest := admin.Destination(mux.Vars(r)["destination"])
	q := r.URL.Query()
	op := q.Get(transport.ParamOpType)
	scope := admin.Scope(q.Get(transport.ParamScope))
	rid := admin.RequestID(q.Get(transport.ParamRequestID))

	log := s.log.With(
		zap.String("request_id", r.Header.Get(transport.HeaderRequestID)),
		zap.String("op", op),
		zap.String("destination", string(dest)),
		zap.String("scope", string(scope)),
		zap.String("resource", string(rid)),
	)

	sch, destOK, scopeOK := s.schema.Lookup(dest, scope)
	switch {
	case !destOK:
		http.Error(w, fmt.Sprintf("unknown destination: %s", dest), http.StatusNotFound)
		return
	case !scopeOK:
		http.Error(w, fmt.Sprintf("unknown scope %q for %s", scope, dest), http.StatusNotFound)
		return
	case rid == "":
		http.Error(w, "missing "+transport.ParamRequestID, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Info("request body too large", zap.Int64("limit", tooLarge.Limit))
			http.Error(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}
	req, err := nvpair.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		http.Error(w, fmt.Sprintf("malformed body: %v", err), http.StatusBadRequest)
		return
	}

	switch op {
	case transport.OpRead:
		resp, err := s.read(dest, scope, rid, sch, req)
		if err != nil {
			log.Error("read failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Debug("read", zap.Int("requested", req.Len()), zap.Int("returned", resp.Len()))
		w.Header().Set("Content-Type", nvpair.ContentType)
		io.WriteString(w, nvpair.Encode(resp))
	case transport.OpModify:
		if err := s.modify(dest, scope, rid, sch, req); err != nil {
			var re *rejection
			if errors.As(err, &re) {
				log.Info("modify rejected", zap.String("reason", re.msg))
				http.Error(w, re.msg, http.StatusUnprocessableEntity)
				return
			}
			log.Error("modify failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Info("modified", zap.Strings("names", req.NameList()))
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, fmt.Sprintf("unknown %s: %q", transport.ParamOpType, op), http.StatusBadRequest)
	}
}

// rejection is a request the server refuses on its merits.
type rejection struct{ msg string }

func (r *rejection) Error() string { return r.msg }

func (s *Server) read(dest admin.Destination, scope admin.Scope, rid admin.RequestID, sch ScopeSchema, req *nvpair.Set) (*nvpair.Set, error) {
	resp := nvpair.New()
	if sch.Secret {
		return resp, nil
	}
	stored, err := s.store.ReadSettings(string(dest), string(scope), string(rid))
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(stored))
	for _, st := range stored {
		values[st.Name] = st.Value
	}
	for name := range req.All() {
		if !sch.Recognizes(name) {
			continue
		}
		if v, ok := values[name]; ok {
			resp.Add(name, v)
		}
	}
	return resp, nil
}

func (s *Server) modify(dest admin.Destination, scope admin.Scope, rid admin.RequestID, sch ScopeSchema, req *nvpair.Set) error {
	for name := range req.All() {
		if !sch.Recognizes(name) {
			return &rejection{msg: fmt.Sprintf("unknown parameter %q for %s/%s", name, dest, scope)}
		}
	}
	if sch.Secret {
		return s.modifySecret(dest, scope, rid, req)
	}

	settings := make([]config.Setting, 0, req.Len())
	for name, value := range req.All() {
		settings = append(settings, config.Setting{
			Destination: string(dest),
			Scope:       string(scope),
			Resource:    string(rid),
			Name:        name,
			Value:       value,
		})
	}
	return s.store.WriteSettings(settings)
}

// modifySecret replaces the recovery agent credential. When one is already
// stored the request must prove it with the old credential.
func (s *Server) modifySecret(dest admin.Destination, scope admin.Scope, rid admin.RequestID, req *nvpair.Set) error {
	newValue, ok := req.Get(admin.ParamRecoveryAgent)
	if !ok || newValue == "" {
		return &rejection{msg: admin.ParamRecoveryAgent + " is required"}
	}

	stored, err := s.store.ReadSettings(string(dest), string(scope), string(rid))
	if err != nil {
		return err
	}
	for _, st := range stored {
		if st.Name != admin.ParamRecoveryAgent {
			continue
		}
		old := req.Value(admin.ParamOldRecoveryAgent)
		if bcrypt.CompareHashAndPassword([]byte(st.Value), []byte(old)) != nil {
			return &rejection{msg: "old recovery agent credential does not match"}
		}
	}

	h, err := s.HashPassword(newValue)
	if err != nil {
		return err
	}
	return s.store.WriteSettings([]config.Setting{{
		Destination: string(dest),
		Scope:       string(scope),
		Resource:    string(rid),
		Name:        admin.ParamRecoveryAgent,
		Value:       h,
	}})
}
