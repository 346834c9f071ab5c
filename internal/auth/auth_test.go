package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	want := Identity{PlayerID: uuid.New(), Role: RoleOperator}

	token, err := GenerateToken(testSecret, want, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	got, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}
	if got != want {
		t.Errorf("identity = %+v, want %+v", got, want)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, Identity{PlayerID: uuid.New(), Role: RolePlayer}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	if _, err := ParseToken("other-secret", token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ParseToken() error = %v, want ErrUnauthorized", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken(testSecret, Identity{PlayerID: uuid.New(), Role: RolePlayer}, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	if _, err := ParseToken(testSecret, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ParseToken() error = %v, want ErrUnauthorized", err)
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing error: %v", err)
	}

	if _, err := ParseToken(testSecret, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ParseToken() error = %v, want ErrUnauthorized", err)
	}
}

func TestParseToken_DefaultsRoleToPlayer(t *testing.T) {
	playerID := uuid.New()
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   playerID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := bare.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing error: %v", err)
	}

	got, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}
	if got.Role != RolePlayer {
		t.Errorf("role = %q, want %q", got.Role, RolePlayer)
	}
}

func TestFromRequest_BearerHeader(t *testing.T) {
	id := Identity{PlayerID: uuid.New(), Role: RolePlayer}
	token, _ := GenerateToken(testSecret, id, time.Hour)

	r := httptest.NewRequest("POST", "/api/rounds/click", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	got, err := FromRequest(testSecret, r)
	if err != nil {
		t.Fatalf("FromRequest() error: %v", err)
	}
	if got != id {
		t.Errorf("identity = %+v, want %+v", got, id)
	}
}

func TestFromRequest_QueryParam(t *testing.T) {
	id := Identity{PlayerID: uuid.New(), Role: RolePlayer}
	token, _ := GenerateToken(testSecret, id, time.Hour)

	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	got, err := FromRequest(testSecret, r)
	if err != nil {
		t.Fatalf("FromRequest() error: %v", err)
	}
	if got != id {
		t.Errorf("identity = %+v, want %+v", got, id)
	}
}

func TestFromRequest_MissingToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	if _, err := FromRequest(testSecret, r); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("FromRequest() error = %v, want ErrUnauthorized", err)
	}
}
