package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const (
	// CompanyColorKey is the settings key for the company-wide reservation color.
	CompanyColorKey = "company_default_color"
	// DefaultCompanyColor is used until an admin stores a color.
	DefaultCompanyColor = "#718096"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// SettingsRepository stores company-wide key/value settings.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// SettingsService reads and writes company settings.
type SettingsService struct {
	settings SettingsRepository
	logger   *slog.Logger
}

// NewSettingsService wires the settings repository.
func NewSettingsService(settings SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: defaultLogger(logger)}
}

// CompanyColor returns the stored color or DefaultCompanyColor.
func (s *SettingsService) CompanyColor(ctx context.Context) (string, error) {
	if s == nil {
		return "", fmt.Errorf("SettingsService is nil")
	}
	if s.settings == nil {
		return DefaultCompanyColor, nil
	}
	value, err := s.settings.GetSetting(ctx, CompanyColorKey)
	if err != nil {
		if isNotFound(err) {
			return DefaultCompanyColor, nil
		}
		return "", internalError("get company color", err)
	}
	if strings.TrimSpace(value) == "" {
		return DefaultCompanyColor, nil
	}
	return value, nil
}

// SetCompanyColor stores a #RRGGBB color. Only admins may change it.
func (s *SettingsService) SetCompanyColor(ctx context.Context, principal Principal, color string) (err error) {
	if s == nil {
		return fmt.Errorf("SettingsService is nil")
	}
	if s.settings == nil {
		return fmt.Errorf("settings repository not configured")
	}

	color = strings.TrimSpace(color)
	logger := serviceLogger(ctx, s.logger, "SettingsService", "SetCompanyColor", "user_id", principal.UserID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "company color update", err)
			return
		}
		logger.InfoContext(ctx, "company color updated", "color", color)
	}()

	if principal.UserID == 0 {
		return ErrUnauthorized
	}
	if !principal.IsAdmin {
		return ErrPermission
	}
	if !hexColorPattern.MatchString(color) {
		vErr := &ValidationError{}
		vErr.add("color", "Invalid color format")
		return vErr
	}
	if err := s.settings.PutSetting(ctx, CompanyColorKey, strings.ToUpper(color)); err != nil {
		return internalError("put company color", err)
	}
	return nil
}
