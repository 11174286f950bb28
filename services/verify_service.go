package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"connect3-server/models"
	"connect3-server/utils/errors"
)

const (
	verifyBaseURL = "https://verify.twilio.com/v2/Services/"

	// One OTP text per phone number per cooldown window.
	sendCooldown = time.Minute
	// Checks allowed per phone number inside the attempt window.
	maxCheckAttempts = 5
	attemptWindow    = 10 * time.Minute

	// StatusApproved is the Twilio Verify status of a successful check.
	StatusApproved = "approved"
)

// VerifyService sends and checks OTP codes through the Twilio Verify v2 REST
// API. Redis backs per-phone abuse controls; Twilio itself holds the codes.
type VerifyService struct {
	accountSID string
	authToken  string
	serviceSID string
	httpClient *http.Client
	redis      *redis.Client
	logger     *zap.Logger
}

func NewVerifyService(accountSID, authToken, serviceSID string, redisClient *redis.Client, logger *zap.Logger) *VerifyService {
	return &VerifyService{
		accountSID: accountSID,
		authToken:  authToken,
		serviceSID: serviceSID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		redis:      redisClient,
		logger:     logger,
	}
}

// SendCode texts an OTP to the phone number. The number must already be in
// E.164 form; the provider does not normalize it.
func (s *VerifyService) SendCode(ctx context.Context, phonenumber string) (*models.Verification, error) {
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, "otp:cooldown:"+phonenumber, 1, sendCooldown).Result()
		if err != nil {
			s.logger.Warn("otp cooldown check failed, allowing send", zap.Error(err))
		} else if !ok {
			return nil, errors.ErrRateLimited
		}
	}

	form := url.Values{}
	form.Set("To", phonenumber)
	form.Set("Channel", "sms")
	return s.post(ctx, s.serviceSID+"/Verifications", form)
}

// CheckCode verifies an OTP for the phone number. Attempts are capped per
// phone number inside a rolling window; the counter clears on approval.
func (s *VerifyService) CheckCode(ctx context.Context, phonenumber, code string) (*models.Verification, error) {
	attemptKey := "otp:attempts:" + phonenumber
	if s.redis != nil {
		attempts, err := s.redis.Incr(ctx, attemptKey).Result()
		if err != nil {
			s.logger.Warn("otp attempt count failed, allowing check", zap.Error(err))
		} else {
			if attempts == 1 {
				s.redis.Expire(ctx, attemptKey, attemptWindow)
			}
			if attempts > maxCheckAttempts {
				return nil, errors.ErrRateLimited
			}
		}
	}

	form := url.Values{}
	form.Set("To", phonenumber)
	form.Set("Code", code)
	verification, err := s.post(ctx, s.serviceSID+"/VerificationCheck", form)
	if err != nil {
		return nil, err
	}
	if verification.Status == StatusApproved && s.redis != nil {
		s.redis.Del(ctx, attemptKey)
	}
	return verification, nil
}

func (s *VerifyService) post(ctx context.Context, path string, form url.Values) (*models.Verification, error) {
	endpoint := verifyBaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "VERIFY_ERROR", "Failed to build verification request", http.StatusInternalServerError)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "VERIFY_ERROR", "Verification provider unreachable", http.StatusBadGateway)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		s.logger.Error("twilio verify request failed",
			zap.Int("status", res.StatusCode),
			zap.String("body", string(body)))
		return nil, errors.NewAPIError("VERIFY_ERROR", "Verification provider request failed", http.StatusBadGateway)
	}

	var verification models.Verification
	if err := json.NewDecoder(res.Body).Decode(&verification); err != nil {
		return nil, errors.Wrap(err, "VERIFY_ERROR", "Failed to decode verification response", http.StatusBadGateway)
	}
	return &verification, nil
}
