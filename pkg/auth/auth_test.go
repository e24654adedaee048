package auth

import (
	"context"
	"testing"
	"time"

	vo "ixp-grapher/domain/core/valueobjects"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func registered(expiresIn time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    "ixp-grapher",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
}

func TestJWTValidator_ValidateToken(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "ixp-grapher"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name: "valid token with bearer prefix",
			token: func(t *testing.T) string {
				return "Bearer " + sign(t, testSecret, Claims{UserID: "u1", CustomerID: 2, Privilege: 1, RegisteredClaims: registered(time.Hour)})
			},
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return sign(t, testSecret, Claims{UserID: "u1", RegisteredClaims: registered(-time.Hour)})
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return sign(t, "other", Claims{UserID: "u1", RegisteredClaims: registered(time.Hour)})
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name: "missing subject",
			token: func(t *testing.T) string {
				return sign(t, testSecret, Claims{RegisteredClaims: registered(time.Hour)})
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name:    "empty",
			token:   func(t *testing.T) string { return "" },
			wantErr: ErrMissingToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := validator.ValidateToken(tt.token(t))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", claims.UserID)
			assert.Equal(t, 2, claims.CustomerID)
		})
	}
}

func TestClaims_Principal(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   vo.Principal
	}{
		{
			name:   "customer user with grants",
			claims: Claims{UserID: "u1", CustomerID: 4, Privilege: 1, Grants: []int{7}},
			want:   vo.Principal{UserID: "u1", CustomerID: 4, Privilege: vo.PrivilegeCustUser, Grants: []int{7}},
		},
		{
			name:   "out of range privilege is public",
			claims: Claims{UserID: "u2", Privilege: 9},
			want:   vo.Principal{UserID: "u2", Privilege: vo.PrivilegePublic},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.Principal())
		})
	}
}

func TestPrincipalFromContext_DefaultsToAnonymous(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, vo.Anonymous(), PrincipalFromContext(ctx))

	p := vo.Principal{UserID: "admin", Privilege: vo.PrivilegeSuperUser}
	assert.Equal(t, p, PrincipalFromContext(WithPrincipal(ctx, p)))
}

func TestTokenBucketLimiter(t *testing.T) {
	// Arrange
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	l := NewTokenBucketLimiter(2, time.Second)
	l.now = func() time.Time { return now }

	// Act / Assert
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "ip:1")
	assert.False(t, ok, "burst exhausted")

	ok, _ = l.Allow(ctx, "ip:2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(1500 * time.Millisecond)
	ok, _ = l.Allow(ctx, "ip:1")
	assert.True(t, ok, "one token refilled")
	ok, _ = l.Allow(ctx, "ip:1")
	assert.False(t, ok)

	require.NoError(t, l.Reset(ctx, "ip:1"))
	ok, _ = l.Allow(ctx, "ip:1")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_SweepDropsIdleKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	l := NewPerMinuteLimiter(60, 10)
	l.now = func() time.Time { return now }
	_, _ = l.Allow(ctx, "a")

	now = now.Add(2 * time.Hour)
	l.sweep()

	assert.Equal(t, 0, l.Len())
}

func TestTokenBucketLimiter_RefillFollowsInjectedClock(t *testing.T) {
	ctx := context.Background()
	start := time.Unix(1700000000, 0)

	tests := []struct {
		name    string
		burst   int
		refill  time.Duration
		elapsed time.Duration
		want    []bool
	}{
		{name: "fresh key gets the full burst", burst: 3, refill: time.Minute, want: []bool{true, true, true, false}},
		{name: "no refill before the interval", burst: 1, refill: time.Minute, elapsed: 59 * time.Second, want: []bool{false}},
		{name: "one token per interval", burst: 1, refill: time.Minute, elapsed: 61 * time.Second, want: []bool{true, false}},
		{name: "refill never exceeds the burst", burst: 2, refill: time.Second, elapsed: time.Hour, want: []bool{true, true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			now := start
			l := NewTokenBucketLimiter(tt.burst, tt.refill)
			l.now = func() time.Time { return now }
			if tt.elapsed > 0 {
				for i := 0; i < tt.burst; i++ {
					_, _ = l.Allow(ctx, "k")
				}
				now = now.Add(tt.elapsed)
			}

			// Act
			var got []bool
			for range tt.want {
				ok, err := l.Allow(ctx, "k")
				require.NoError(t, err)
				got = append(got, ok)
			}

			// Assert
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenBucketLimiter_SweepKeepsActiveKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	l := NewPerMinuteLimiter(60, 10)
	l.now = func() time.Time { return now }
	_, _ = l.Allow(ctx, "idle")

	now = now.Add(90 * time.Minute)
	_, _ = l.Allow(ctx, "active")
	l.sweep()

	assert.Equal(t, 1, l.Len())
}
