package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/officine/bilan/internal/audit"
	"github.com/officine/bilan/internal/config"
	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/netaddr"
	"github.com/officine/bilan/internal/repository"
	"github.com/officine/bilan/internal/util"
)

// Messages shown on the tablet when a QR link is refused.
const (
	ErrMsgMissingSid        = "Parametre sid manquant"
	ErrMsgMissingToken      = "Parametre t manquant"
	ErrMsgMissingSig        = "Parametre sig manquant"
	ErrMsgInvalidVersion    = "Version du payload invalide"
	ErrMsgInvalidSignature  = "Signature invalide"
	ErrMsgUnknownSession    = "Session inconnue"
	ErrMsgInactiveSession   = "Session inactive"
	defaultQRCodeSizePixels = 320
)

// QRData is everything the desktop needs to display one capability link.
type QRData struct {
	Payload   string `json:"payload"`
	SessionID string `json:"session_id"`
	Version   int    `json:"version"`
	Token     string `json:"token"`
	Signature string `json:"signature"`
}

// ValidationResult carries either the session or a displayable reason.
// Callers decide on Valid only, never on the Error text.
type ValidationResult struct {
	Valid   bool
	Session *model.Session
	Error   string
}

type QRService struct {
	secretRepo repository.SecretRepository
	sessions   *SessionService
	port       int
	baseURL    string

	mu     sync.Mutex
	secret string
}

// NewQRService builds payloads against baseURL, or against the LAN address of
// this host on port when baseURL is empty.
func NewQRService(
	secretRepo repository.SecretRepository,
	sessions *SessionService,
	baseURL string,
	port int,
) *QRService {
	return &QRService{
		secretRepo: secretRepo,
		sessions:   sessions,
		baseURL:    baseURL,
		port:       port,
	}
}

// LoadOrCreateSecret returns the pharmacy-wide signing key, creating it on
// first use.
func (s *QRService) LoadOrCreateSecret(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secret != "" {
		return s.secret, nil
	}

	secret, found, err := s.secretRepo.Load(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		candidate, err := util.GenerateHexSecret()
		if err != nil {
			return "", fmt.Errorf("generate qr secret: %w", err)
		}
		secret, err = s.secretRepo.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return "", err
		}
		log.Info().Msg("qr secret created")
	}

	s.secret = secret
	return secret, nil
}

func signingMessage(sessionID, token string) string {
	return fmt.Sprintf("v=%d&sid=%s&t=%s", config.QRPayloadVersion, sessionID, token)
}

func (s *QRService) sign(ctx context.Context, sessionID, token string) (string, error) {
	secret, err := s.LoadOrCreateSecret(ctx)
	if err != nil {
		return "", err
	}
	return util.HmacSHA256(secret, signingMessage(sessionID, token)), nil
}

// Issue mints a fresh token for an active session. Earlier tokens stay valid.
func (s *QRService) Issue(ctx context.Context, session *model.Session, baseURL string) (*QRData, error) {
	if !session.IsActive() {
		return nil, apperrors.InvalidState(fmt.Sprintf("Session inactive: %s", session.SessionID))
	}

	if baseURL == "" {
		baseURL = s.baseURL
	}
	if baseURL == "" {
		baseURL = netaddr.QuestionnaireBaseURL(s.port)
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	signature, err := s.sign(ctx, session.SessionID, token)
	if err != nil {
		return nil, err
	}

	payload := fmt.Sprintf("%s?v=%d&sid=%s&t=%s&sig=%s",
		baseURL, config.QRPayloadVersion, session.SessionID, token, signature)

	audit.Log(ctx, audit.Event{
		Type:      audit.EventQRIssue,
		SessionID: session.SessionID,
		Details:   map[string]any{"base_url": baseURL},
	})

	return &QRData{
		Payload:   payload,
		SessionID: session.SessionID,
		Version:   config.QRPayloadVersion,
		Token:     token,
		Signature: signature,
	}, nil
}

func (s *QRService) IssueForSession(ctx context.Context, sessionID, baseURL string) (*QRData, error) {
	session, err := s.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Issue(ctx, session, baseURL)
}

// Verify checks the signature only; it knows nothing about session state.
func (s *QRService) Verify(ctx context.Context, sessionID, token, signature string) bool {
	expected, err := s.sign(ctx, sessionID, token)
	if err != nil {
		log.Error().Err(err).Msg("qr verify: secret unavailable")
		return false
	}
	return util.ConstantTimeEqual(expected, signature)
}

// ValidateRequestParams runs the tablet access gate, stopping at the first
// failing check.
func (s *QRService) ValidateRequestParams(ctx context.Context, v, sid, t, sig string) ValidationResult {
	switch {
	case sid == "":
		return ValidationResult{Error: ErrMsgMissingSid}
	case t == "":
		return ValidationResult{Error: ErrMsgMissingToken}
	case sig == "":
		return ValidationResult{Error: ErrMsgMissingSig}
	}

	version, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || version != config.QRPayloadVersion {
		return ValidationResult{Error: ErrMsgInvalidVersion}
	}

	if !s.Verify(ctx, sid, t, sig) {
		return ValidationResult{Error: ErrMsgInvalidSignature}
	}

	session, err := s.sessions.LoadSession(ctx, sid)
	if err != nil {
		if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			log.Warn().Err(err).Str("sessionId", sid).Msg("signed link for unreadable session")
		}
		return ValidationResult{Error: ErrMsgUnknownSession}
	}
	if !session.IsActive() {
		return ValidationResult{Error: ErrMsgInactiveSession}
	}

	return ValidationResult{Valid: true, Session: session}
}

// RenderQRCodePNG encodes payload as a square PNG of size pixels.
func RenderQRCodePNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRCodeSizePixels
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
