package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront-auth/internal/security"
	sessiondomain "storefront-auth/internal/session/domain"
	userdomain "storefront-auth/internal/user/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*userdomain.User
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

type memSessions struct {
	mu       sync.Mutex
	byFamily map[string]*sessiondomain.Session
}

func (r *memSessions) GetByFamilyID(ctx context.Context, familyID string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byFamily[familyID], nil
}

func (r *memSessions) DeleteExpired(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for fid, s := range r.byFamily {
		if s.UserID == userID && s.Expired(now) {
			delete(r.byFamily, fid)
			n++
		}
	}
	return n, nil
}

// identityEcho terminates the middleware chain and reports the identity the
// guard resolved.
func identityEcho(t *testing.T, got *Identity) gin.HandlerFunc {
	t.Helper()
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c.Request.Context())
		if !ok {
			t.Error("handler reached without identity")
		}
		*got = id
		c.Status(http.StatusOK)
	}
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAccessGuard(t *testing.T) {
	codec := security.NewTestTokenCodec()
	users := &memUsers{byID: map[string]*userdomain.User{
		"u1": {ID: "u1", Email: "user@example.com", Role: userdomain.RoleAdmin},
	}}

	var got Identity
	r := gin.New()
	r.GET("/protected", AccessGuard(codec, users, zerolog.Nop()), identityEcho(t, &got))

	token, _, err := codec.IssueAccess("u1", "user@example.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.UserID != "u1" || got.Role != string(userdomain.RoleAdmin) {
		t.Errorf("identity = %+v", got)
	}
}

func TestAccessGuard_Rejections(t *testing.T) {
	codec := security.NewTestTokenCodec()
	users := &memUsers{byID: map[string]*userdomain.User{}}

	r := gin.New()
	r.GET("/protected", AccessGuard(codec, users, zerolog.Nop()), func(c *gin.Context) {
		t.Error("handler must not run")
	})

	accessToken, _, _ := codec.IssueAccess("u1", "user@example.com")
	refreshToken, _, _ := codec.IssueRefresh("u1", "user@example.com", "fam-1")

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"refresh token on access guard", "Bearer " + refreshToken},
		{"deleted user", "Bearer " + accessToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, tc.header)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func seedRefreshSession(codec *security.TokenCodec, userID, familyID string) (token string, sess *sessiondomain.Session, err error) {
	token, exp, err := codec.IssueRefresh(userID, userID+"@example.com", familyID)
	if err != nil {
		return "", nil, err
	}
	now := time.Now().UTC()
	return token, &sessiondomain.Session{
		ID:               "sess-" + familyID,
		UserID:           userID,
		FamilyID:         familyID,
		RefreshTokenHash: security.HashRefreshToken(token),
		ExpiresAt:        exp,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func TestRefreshGuard(t *testing.T) {
	codec := security.NewTestTokenCodec()
	token, sess, err := seedRefreshSession(codec, "u1", "fam-1")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	sessions := &memSessions{byFamily: map[string]*sessiondomain.Session{"fam-1": sess}}

	var got Identity
	r := gin.New()
	r.GET("/protected", RefreshGuard(codec, sessions, zerolog.Nop()), identityEcho(t, &got))

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.UserID != "u1" || got.FamilyID != "fam-1" {
		t.Errorf("identity = %+v", got)
	}
}

func TestRefreshGuard_Rejections(t *testing.T) {
	codec := security.NewTestTokenCodec()

	t.Run("revoked session", func(t *testing.T) {
		token, _, err := seedRefreshSession(codec, "u1", "fam-1")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		sessions := &memSessions{byFamily: map[string]*sessiondomain.Session{}}
		r := gin.New()
		r.GET("/protected", RefreshGuard(codec, sessions, zerolog.Nop()), func(c *gin.Context) {})
		if w := doRequest(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("user mismatch", func(t *testing.T) {
		token, sess, err := seedRefreshSession(codec, "u1", "fam-1")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		sess.UserID = "someone-else"
		sessions := &memSessions{byFamily: map[string]*sessiondomain.Session{"fam-1": sess}}
		r := gin.New()
		r.GET("/protected", RefreshGuard(codec, sessions, zerolog.Nop()), func(c *gin.Context) {})
		if w := doRequest(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("hash mismatch after rotation", func(t *testing.T) {
		oldToken, _, err := seedRefreshSession(codec, "u1", "fam-1")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		// The row now stores a different token's hash, as after rotation.
		_, sess, err := seedRefreshSession(codec, "u1", "fam-1")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		sessions := &memSessions{byFamily: map[string]*sessiondomain.Session{"fam-1": sess}}
		r := gin.New()
		r.GET("/protected", RefreshGuard(codec, sessions, zerolog.Nop()), func(c *gin.Context) {})
		if w := doRequest(r, "Bearer "+oldToken); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("expired session row removed", func(t *testing.T) {
		token, sess, err := seedRefreshSession(codec, "u1", "fam-1")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		sess.ExpiresAt = time.Now().UTC().Add(-time.Minute)
		sessions := &memSessions{byFamily: map[string]*sessiondomain.Session{"fam-1": sess}}
		r := gin.New()
		r.GET("/protected", RefreshGuard(codec, sessions, zerolog.Nop()), func(c *gin.Context) {})
		if w := doRequest(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
		// Lazy cleanup removed the expired row.
		if got, _ := sessions.GetByFamilyID(context.Background(), "fam-1"); got != nil {
			t.Error("expired session row should have been deleted")
		}
	})

	t.Run("missing family id", func(t *testing.T) {
		// A signature-valid refresh token without a jti is malformed and must
		// be rejected before any store lookup.
		token, _, err := codec.IssueRefresh("u1", "user@example.com", "")
		if err != nil {
			t.Fatalf("IssueRefresh: %v", err)
		}
		sessions := &memSessions{byFamily: map[string]*sessiondomain.Session{}}
		r := gin.New()
		r.GET("/protected", RefreshGuard(codec, sessions, zerolog.Nop()), func(c *gin.Context) {})
		if w := doRequest(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("access token on refresh guard", func(t *testing.T) {
		accessToken, _, err := codec.IssueAccess("u1", "user@example.com")
		if err != nil {
			t.Fatalf("IssueAccess: %v", err)
		}
		sessions := &memSessions{byFamily: map[string]*sessiondomain.Session{}}
		r := gin.New()
		r.GET("/protected", RefreshGuard(codec, sessions, zerolog.Nop()), func(c *gin.Context) {})
		if w := doRequest(r, "Bearer "+accessToken); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}
