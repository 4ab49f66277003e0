package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	fixed := time.Now()
	tm.now = func() time.Time { return fixed }

	token, exp, err := tm.GenerateToken("ops@studio.co")
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Equal(fixed.Add(15 * time.Minute)) {
		t.Errorf("exp = %v", exp)
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "ops@studio.co" || claims.Role != RoleOperator {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 15)

	expired := NewTokenManager("secret", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.GenerateToken("ops@studio.co")
	if err != nil {
		t.Fatal(err)
	}

	otherSecret, _, err := NewTokenManager("other", 15).GenerateToken("ops@studio.co")
	if err != nil {
		t.Fatal(err)
	}

	wrongRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             "staff",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{
		"expired":      expiredToken,
		"other secret": otherSecret,
		"wrong role":   wrongRole,
		"garbage":      "not-a-token",
	} {
		if _, err := tm.ParseToken(token); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	token, _, err := tm.GenerateToken("ops@studio.co")
	if err != nil {
		t.Fatal(err)
	}

	newApp := func(enabled bool) *fiber.App {
		app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(http.StatusUnauthorized)
		}})
		app.Get("/ops", NewAuthMiddleware(tm, enabled).Handle, func(c *fiber.Ctx) error {
			if p, ok := PrincipalFromContext(c); ok {
				return c.SendString(p.Email)
			}
			return c.SendString("anonymous")
		})
		return app
	}

	tests := []struct {
		name    string
		enabled bool
		header  string
		want    int
	}{
		{name: "disabled passes through", enabled: false, want: http.StatusOK},
		{name: "missing header", enabled: true, want: http.StatusUnauthorized},
		{name: "wrong scheme", enabled: true, header: "Basic abc", want: http.StatusUnauthorized},
		{name: "bad token", enabled: true, header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid token", enabled: true, header: "Bearer " + token, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ops", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newApp(tt.enabled).Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw", 0)
	if err != nil {
		t.Fatal(err)
	}
	if ComparePassword(hash, "pw") != nil || ComparePassword(hash, "other") == nil {
		t.Error("password comparison mismatch")
	}
}
