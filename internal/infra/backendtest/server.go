// Package backendtest implements the ChopShop backend contract in memory so
// client tests can run against a real HTTP surface: JWT-authenticated
// endpoints, a credit ledger, and scriptable job progressions.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"chopshop/internal/domain/model"
)

const SigningSecret = "backendtest-secret"

type account struct {
	id       string
	email    string
	password string
	credits  int64
}

type jobState struct {
	owner       string
	typ         model.TransformationType
	status      model.JobStatus
	inputURL    string
	outputURL   string
	errMsg      string
	createdAt   time.Time
	completedAt time.Time
	step        int
}

// Server is an http.Handler; wrap it in httptest.NewServer. The zero
// Progression means every job completes after one processing tick.
type Server struct {
	mu       sync.Mutex
	router   chi.Router
	accounts map[string]*account // by email
	jobs     map[string]*jobState
	jobOrder []string

	// Progression is the status sequence a job walks through, one step per
	// status query. Terminal entries stop the walk.
	Progression []model.JobStatus
	// SubmitError, when set, makes the next submit fail with a 422.
	SubmitError string
	// SignupCredits is the balance granted to new accounts.
	SignupCredits int64
}

func New() *Server {
	s := &Server{
		accounts:      make(map[string]*account),
		jobs:          make(map[string]*jobState),
		Progression:   []model.JobStatus{model.JobStatusProcessing, model.JobStatusCompleted},
		SignupCredits: 5,
	}

	r := chi.NewRouter()
	r.Post("/api/auth/register", s.handleRegister)
	r.Post("/api/auth/login", s.handleLogin)
	r.Get("/api/pricing", s.handlePricing)
	r.Get("/api/stats", s.handleStats)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/auth/me", s.handleMe)
		r.Post("/api/web/process", s.handleProcess)
		r.Get("/api/web/jobs/{id}", s.handleJobStatus)
		r.Get("/api/web/jobs", s.handleJobHistory)
		r.Get("/api/user/credits", s.handleCredits)
		r.Post("/api/stripe/create-checkout", s.handleCheckout)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed registers an account directly and returns a valid bearer token.
func (s *Server) Seed(email, password string, credits int64) string {
	s.mu.Lock()
	acc := &account{id: uuid.NewString(), email: email, password: password, credits: credits}
	s.accounts[email] = acc
	s.mu.Unlock()
	return s.token(acc)
}

// Credits reports an account's current ledger balance.
func (s *Server) Credits(email string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[email]; ok {
		return acc.credits
	}
	return -1
}

func (s *Server) token(acc *account) string {
	claims := jwt.MapClaims{
		"sub":   acc.id,
		"email": acc.email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(SigningSecret))
	if err != nil {
		panic(fmt.Sprintf("backendtest: sign token: %v", err))
	}
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(SigningSecret), nil
		})
		if err != nil || !tok.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims := tok.Claims.(jwt.MapClaims)
		sub, _ := claims["sub"].(string)

		s.mu.Lock()
		var acc *account
		for _, a := range s.accounts {
			if a.id == sub {
				acc = a
				break
			}
		}
		s.mu.Unlock()
		if acc == nil {
			writeError(w, http.StatusUnauthorized, "unknown account")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), acc)))
	})
}

func (s *Server) userPayload(acc *account) map[string]any {
	return map[string]any{
		"id":        acc.id,
		"email":     acc.email,
		"credits":   acc.credits,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[creds.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "account already exists")
		return
	}
	acc := &account{id: uuid.NewString(), email: creds.Email, password: creds.Password, credits: s.SignupCredits}
	s.accounts[creds.Email] = acc
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"token": s.token(acc), "user": s.userPayload(acc)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	s.mu.Lock()
	acc := s.accounts[creds.Email]
	s.mu.Unlock()
	if acc == nil || acc.password != creds.Password {
		writeError(w, http.StatusBadRequest, "invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": s.token(acc), "user": s.userPayload(acc)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	s.mu.Lock()
	payload := s.userPayload(acc)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())

	var req struct {
		Type        string `json:"type"`
		SourceImage string `json:"sourceImage"`
		TargetImage string `json:"targetImage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SubmitError != "" {
		msg := s.SubmitError
		s.SubmitError = ""
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	tr, err := model.LookupTransformation(model.TransformationType(req.Type))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown transformation type")
		return
	}
	if req.SourceImage == "" {
		writeError(w, http.StatusBadRequest, "sourceImage is required")
		return
	}
	if tr.RequiresTarget && req.TargetImage == "" {
		writeError(w, http.StatusBadRequest, "targetImage is required")
		return
	}
	if acc.credits < tr.Credits {
		writeError(w, http.StatusPaymentRequired, "insufficient credits")
		return
	}
	acc.credits -= tr.Credits

	id := uuid.NewString()
	job := &jobState{
		owner:     acc.id,
		typ:       tr.Type,
		status:    model.JobStatusPending,
		inputURL:  fmt.Sprintf("https://cdn.example/in/%s", id),
		createdAt: time.Now().UTC(),
	}
	s.jobs[id] = job
	s.jobOrder = append(s.jobOrder, id)

	writeJSON(w, http.StatusCreated, s.jobPayload(id, job))
}

func (s *Server) jobPayload(id string, job *jobState) map[string]any {
	p := map[string]any{
		"id":        id,
		"userId":    job.owner,
		"type":      string(job.typ),
		"status":    string(job.status),
		"inputUrl":  job.inputURL,
		"createdAt": job.createdAt.Format(time.RFC3339),
	}
	if job.outputURL != "" {
		p["outputUrl"] = job.outputURL
	}
	if job.errMsg != "" {
		p["error"] = job.errMsg
	}
	if !job.completedAt.IsZero() {
		p["completedAt"] = job.completedAt.Format(time.RFC3339)
	}
	return p
}

// handleJobStatus advances the job one step through the configured
// progression per query, which is exactly how a polling client observes it.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.owner != acc.id {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if !job.status.Terminal() && job.step < len(s.Progression) {
		job.status = s.Progression[job.step]
		job.step++
		if job.status == model.JobStatusCompleted {
			job.outputURL = fmt.Sprintf("https://cdn.example/out/%s", id)
		}
		if job.status.Terminal() {
			job.completedAt = time.Now().UTC()
			if job.status == model.JobStatusFailed {
				job.errMsg = "processing failed"
			}
		}
	}
	writeJSON(w, http.StatusOK, s.jobPayload(id, job))
}

func (s *Server) handleJobHistory(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []map[string]any{}
	for i := len(s.jobOrder) - 1; i >= 0; i-- {
		id := s.jobOrder[i]
		if job := s.jobs[id]; job.owner == acc.id {
			out = append(out, s.jobPayload(id, job))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	s.mu.Lock()
	credits := acc.credits
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int64{"credits": credits})
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": "starter", "name": "Starter", "credits": 25, "price": 9.99, "stripePriceId": "price_starter"},
		{"id": "pro", "name": "Pro", "credits": 120, "price": 29.99, "stripePriceId": "price_pro"},
	})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"planId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "planId is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": "https://checkout.example/session/" + req.PlanID,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{
		"totalCreations": len(s.jobs),
		"totalUsers":     len(s.accounts),
	})
}
