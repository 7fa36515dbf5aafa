package auth

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/testdb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sentMail struct {
	to, subject, body string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *captureMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

var tokenInBody = regexp.MustCompile(`token=([0-9a-f]+)`)

type fixture struct {
	db     *gorm.DB
	h      *Handler
	mailer *captureMailer
	r      *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t, &users.User{}, &users.VerificationToken{}, &profiles.Profile{})
	mailer := &captureMailer{}
	h := &Handler{
		DB:        db,
		Log:       zerolog.Nop(),
		Secret:    []byte("secret"),
		TrialDays: 14,
		APIURL:    "http://api.test",
		AppURL:    "http://app.test",
		Mailer:    mailer,
	}

	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/resend-verification", h.ResendVerification)
	r.POST("/request-password-reset", h.RequestPasswordReset)
	r.POST("/reset-password", h.ResetPassword)
	r.POST("/change-password", func(c *gin.Context) {
		c.Set("user_id", uint(1))
		h.ChangePassword(c)
	})
	r.GET("/auth/google", h.GoogleStart)
	r.GET("/auth/google/callback", h.GoogleCallback)
	return &fixture{db: db, h: h, mailer: mailer, r: r}
}

func (f *fixture) post(path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *fixture) register(t *testing.T, email string) users.User {
	t.Helper()
	w := f.post("/register", gin.H{"name": "Ana", "email": email, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var u users.User
	require.NoError(t, f.db.Where("email = ?", email).First(&u).Error)
	return u
}

func TestRegisterStartsTrialWithPrimaryProfile(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ana@example.com")

	assert.Equal(t, subscription.TierFreeTrial, u.Tier)
	assert.False(t, u.IsVerified)
	require.NotNil(t, u.TrialEndAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), *u.TrialEndAt, time.Minute)

	list, err := profiles.ListForUser(f.db, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsPrimary)
	assert.Equal(t, "Ana", list[0].Name)

	mail := f.mailer.last(t)
	assert.Equal(t, "ana@example.com", mail.to)
	assert.Contains(t, mail.body, "http://api.test/verify?token=")
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ana@example.com")

	w := f.post("/register", gin.H{"name": "Ana", "email": "ANA@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.post("/register", gin.H{"name": "Ana", "email": "b@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post("/register", gin.H{"name": "Ana", "email": "not-an-email", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRequiresVerification(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ana@example.com")

	w := f.post("/login", gin.H{"email": "ana@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, f.db.Model(&u).Update("is_verified", true).Error)

	w = f.post("/login", gin.H{"email": "ana@example.com", "password": "wrong1234"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post("/login", gin.H{"email": " Ana@Example.com ", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Token)
}

func TestResendVerificationReplacesToken(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ana@example.com")

	w := f.post("/resend-verification", gin.H{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	var n int64
	f.db.Model(&users.VerificationToken{}).Where("user_id = ?", u.ID).Count(&n)
	assert.EqualValues(t, 1, n)
	assert.Len(t, f.mailer.sent, 2)

	w = f.post("/resend-verification", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ana@example.com")
	require.NoError(t, f.db.Model(&u).Update("is_verified", true).Error)

	w := f.post("/request-password-reset", gin.H{"email": "unknown@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.post("/request-password-reset", gin.H{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	mail := f.mailer.last(t)
	assert.Contains(t, mail.body, "http://app.test/reset-password?token=")
	token := tokenInBody.FindStringSubmatch(mail.body)[1]

	w = f.post("/reset-password", gin.H{"token": token, "new_password": "newpass456"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.post("/reset-password", gin.H{"token": token, "new_password": "newpass456"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post("/login", gin.H{"email": "ana@example.com", "password": "newpass456"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExpiredResetTokenIsRejected(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ana@example.com")
	require.NoError(t, f.db.Create(&users.VerificationToken{
		UserID:    u.ID,
		Token:     "deadbeef",
		Type:      users.TokenPasswordReset,
		ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)

	w := f.post("/reset-password", gin.H{"token": "deadbeef", "new_password": "newpass456"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ana@example.com")
	require.Equal(t, uint(1), u.ID)

	w := f.post("/change-password", gin.H{"old_password": "wrong1234", "new_password": "another789"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post("/change-password", gin.H{"old_password": "secret123", "new_password": "weak"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post("/change-password", gin.H{"old_password": "secret123", "new_password": "another789"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGoogleDisabled(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGoogleCallbackCreatesUser(t *testing.T) {
	f := newFixture(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":            googleIssuer,
		"aud":            "client-id",
		"sub":            "g-42",
		"email":          "gina@example.com",
		"email_verified": true,
		"name":           "Gina",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	f.h.Google = &GoogleProvider{
		oauth: &oauth2.Config{ClientID: "client-id", RedirectURL: "http://api.test/auth/google/callback"},
		verifier: oidc.NewVerifier(googleIssuer,
			&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
			&oidc.Config{ClientID: "client-id"}),
		exchange: func(ctx context.Context, code string) (string, error) { return idToken, nil },
	}

	start := httptest.NewRecorder()
	f.r.ServeHTTP(start, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	require.Equal(t, http.StatusFound, start.Code)
	var state string
	for _, ck := range start.Result().Cookies() {
		if ck.Name == stateCookieName {
			state = ck.Value
		}
	}
	require.NotEmpty(t, state)

	bad := httptest.NewRecorder()
	f.r.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state=other", nil))
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: state})
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"token"`)

	var u users.User
	require.NoError(t, f.db.Where("email = ?", "gina@example.com").First(&u).Error)
	assert.Equal(t, users.ProviderGoogle, u.AuthProvider)
	assert.True(t, u.IsVerified)
	require.NotNil(t, u.GoogleSub)
	assert.Equal(t, "g-42", *u.GoogleSub)

	n, err := profiles.CountActive(f.db, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
