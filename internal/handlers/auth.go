package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/access"
	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/internal/session"
	"github.com/samajportal/apiserver/types"
)

// AuthHandler provides sign-up, sign-in and session endpoints.
type AuthHandler struct {
	users  *services.UserService
	secret []byte
	logger *zap.Logger
}

// NewAuthHandler constructs an AuthHandler that signs tokens with jwtSecret.
func NewAuthHandler(users *services.UserService, jwtSecret string, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{users: users, secret: []byte(jwtSecret), logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(RequireSession).Post("/refresh", h.Refresh)
	r.With(RequireSession).Post("/logout", h.Logout)
	r.With(RequireSession).Post("/logout/all", h.LogoutAll)
	r.With(RequireSession).Get("/me", h.Me)
}

// SessionMiddleware attaches a session provider to every request. A valid
// bearer token whose session is still active establishes the member's
// session; anything else leaves the request anonymous.
type SessionMiddleware struct {
	users    *services.UserService
	resolver *session.Resolver
	secret   []byte
	logger   *zap.Logger
}

// NewSessionMiddleware constructs the middleware that resolves bearer
// tokens into sessions.
func NewSessionMiddleware(users *services.UserService, resolver *session.Resolver, jwtSecret string, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{users: users, resolver: resolver, secret: []byte(jwtSecret), logger: logger}
}

// Handler attaches a session provider to the request context.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provider := session.NewProvider(m.resolver)
		ctx := session.WithProvider(r.Context(), provider)

		if tokenString, err := bearerToken(r); err == nil {
			m.establish(ctx, provider, tokenString)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) establish(ctx context.Context, provider *session.Provider, tokenString string) {
	claims, err := parseToken(tokenString, m.secret)
	if err != nil {
		m.logger.Debug("rejecting bearer token", zap.Error(err))
		return
	}
	memberID, err := strconv.Atoi(claims.Subject)
	if err != nil || memberID < 1 {
		return
	}
	if _, err := m.users.ValidateSession(ctx, claims.ID, memberID); err != nil {
		if !errors.Is(err, services.ErrSessionInvalid) {
			m.logger.Warn("session lookup failed", zap.Int("member_id", memberID), zap.Error(err))
		}
		return
	}
	provider.Establish(ctx, memberID, claims.ID)
}

// Register creates an account and signs the new member in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.Registration
	if !decodeJSON(w, r, &req) {
		return
	}

	account, _, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.signIn(w, r, http.StatusCreated, account.ID)
}

// Login verifies credentials and signs the member in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.users.Authenticate(r.Context(), req.Mobile, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.signIn(w, r, http.StatusOK, account.ID)
}

// Refresh replaces the current token with a new one and re-derives the
// session from the stores.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	provider, _ := session.FromContext(r.Context())
	cur := provider.Current()

	next, err := h.users.RotateSession(r.Context(), cur.TokenID, cur.MemberID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	token, err := issueToken(cur.MemberID, next.ID, next.ExpiresAt, h.secret)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	st := provider.Establish(r.Context(), cur.MemberID, next.ID)
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, ExpiresAt: next.ExpiresAt, Session: newSessionView(st)})
}

// Logout withdraws the session and revokes its token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	provider, _ := session.FromContext(r.Context())
	err := provider.Teardown(r.Context(), func(ctx context.Context, st session.State) error {
		return h.users.EndSession(ctx, st.TokenID)
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll withdraws the session and revokes every token of the member,
// signing them out on all devices.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	provider, _ := session.FromContext(r.Context())
	err := provider.Teardown(r.Context(), func(ctx context.Context, st session.State) error {
		return h.users.EndAllSessions(ctx, st.MemberID)
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me describes the caller's session and what each feature allows.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(session.CurrentFromContext(r.Context())))
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, status, memberID int) {
	sess, err := h.users.StartSession(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	token, err := issueToken(memberID, sess.ID, sess.ExpiresAt, h.secret)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	st := session.Anonymous
	if provider, ok := session.FromContext(r.Context()); ok {
		st = provider.Establish(r.Context(), memberID, sess.ID)
	}
	writeJSON(w, status, AuthResponse{Token: token, ExpiresAt: sess.ExpiresAt, Session: newSessionView(st)})
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// AuthResponse carries a freshly issued token and the session it opens.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Session   SessionView `json:"session"`
}

// SessionView is the client-facing form of a session state.
type SessionView struct {
	Authenticated bool                               `json:"authenticated"`
	MemberID      int                                `json:"member_id,omitempty"`
	Profile       *types.Profile                     `json:"profile"`
	IsAdmin       bool                               `json:"is_admin"`
	Degraded      bool                               `json:"degraded,omitempty"`
	Features      map[access.Feature]access.Decision `json:"features"`
}

func newSessionView(st session.State) SessionView {
	return SessionView{
		Authenticated: st.Authenticated,
		MemberID:      st.MemberID,
		Profile:       st.Profile,
		IsAdmin:       st.IsAdmin,
		Degraded:      st.Degraded,
		Features:      access.EvaluateAll(st.Subject()),
	}
}

func issueToken(memberID int, sessionID string, expiresAt time.Time, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(memberID),
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenString string, secret []byte) (jwt.RegisteredClaims, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return jwt.RegisteredClaims{}, err
	}
	if !token.Valid {
		return jwt.RegisteredClaims{}, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.ID) == "" {
		return jwt.RegisteredClaims{}, errors.New("missing subject or token id")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
