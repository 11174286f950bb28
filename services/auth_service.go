package services

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"connect3-server/models"
	"connect3-server/utils/errors"
)

const (
	// SessionTokenTTL bounds the lifetime of login tokens.
	SessionTokenTTL = 30 * time.Minute
	// PhoneTokenTTL bounds the window between OTP approval and signup.
	PhoneTokenTTL = 10 * time.Minute
)

// AuthService issues and checks JWTs and drives the signup/login flows on top
// of the user directory. Tokens carry the E.164 phone number as subject.
type AuthService struct {
	users     *UserService
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthService(users *UserService, jwtSecret string, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, logger: logger}
}

// HashPassword returns the bcrypt hash of a plaintext password.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "HASH_ERROR", "Failed to hash password", http.StatusInternalServerError)
	}
	return string(hash), nil
}

// CreateAccessToken mints an HS256 JWT for the given identity.
func (s *AuthService) CreateAccessToken(phonenumber string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": phonenumber,
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	return signed, nil
}

// CreatePhoneVerificationToken mints the short-lived token returned after an
// approved OTP check. Presenting it at signup proves ownership of the number.
func (s *AuthService) CreatePhoneVerificationToken(phonenumber string) (string, error) {
	return s.CreateAccessToken(phonenumber, PhoneTokenTTL)
}

// VerifyPhoneToken checks that the token is valid and bound to the given
// phone number.
func (s *AuthService) VerifyPhoneToken(tokenString, phonenumber string) error {
	subject, err := s.parseSubject(tokenString)
	if err != nil {
		return err
	}
	if subject != phonenumber {
		return errors.NewAPIError("UNAUTHORIZED", "Invalid phone verification token", http.StatusUnauthorized)
	}
	return nil
}

func (s *AuthService) parseSubject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrUnauthorized
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.ErrUnauthorized
	}
	subject, ok := claims["sub"].(string)
	if !ok {
		return "", errors.ErrUnauthorized
	}
	return subject, nil
}

// Signup registers a verified user after checking the phone-verification
// token. An unverified placeholder for the same number is upgraded in place.
func (s *AuthService) Signup(ctx context.Context, name, phonenumber, password, verificationToken string) (*models.User, error) {
	if err := s.VerifyPhoneToken(verificationToken, phonenumber); err != nil {
		return nil, err
	}
	if name == "" || password == "" {
		return nil, errors.ErrInvalidInput
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Upsert(ctx, name, phonenumber, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", zap.String("user_id", user.UserID))
	return user, nil
}

// Login authenticates by phone number and password and returns a session
// token.
func (s *AuthService) Login(ctx context.Context, phonenumber, password string) (string, error) {
	user, err := s.users.Find(ctx, phonenumber)
	if err != nil {
		return "", err
	}
	if user == nil || !user.IsVerified {
		return "", errors.NewAPIError("INVALID_CREDENTIALS", "Incorrect phone number or password", http.StatusUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errors.NewAPIError("INVALID_CREDENTIALS", "Incorrect phone number or password", http.StatusUnauthorized)
	}
	return s.CreateAccessToken(phonenumber, SessionTokenTTL)
}
