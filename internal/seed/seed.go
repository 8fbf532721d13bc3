// Package seed loads departments, accounts and company settings from YAML.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/meeting-room-reservation/internal/persistence"
)

//go:embed default.yaml
var defaultSeed []byte

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// File is the YAML document accepted by Apply.
type File struct {
	Company     Company      `yaml:"company"`
	Departments []Department `yaml:"departments"`
	Users       []User       `yaml:"users"`
}

type Company struct {
	DefaultColor string `yaml:"default_color"`
}

type Department struct {
	Name         string `yaml:"name"`
	DefaultColor string `yaml:"default_color"`
	// DisplayOrder defaults to the 1-based position in the file.
	DisplayOrder int `yaml:"display_order"`
}

type User struct {
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Password   string `yaml:"password"`
	Department string `yaml:"department"`
	Role       string `yaml:"role"`
	// EmailNotification defaults to true.
	EmailNotification *bool `yaml:"email_notification"`
}

// Default returns the embedded seed document.
func Default() (File, error) {
	return Parse(bytes.NewReader(defaultSeed))
}

// Parse decodes and validates a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("seed: parse: %w", err)
	}
	if err := f.validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) validate() error {
	var problems []string

	if f.Company.DefaultColor != "" && !colorPattern.MatchString(f.Company.DefaultColor) {
		problems = append(problems, fmt.Sprintf("company.default_color %q is not #RRGGBB", f.Company.DefaultColor))
	}

	departments := make(map[string]struct{}, len(f.Departments))
	for i, d := range f.Departments {
		name := strings.TrimSpace(d.Name)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("departments[%d].name is required", i))
		case !colorPattern.MatchString(d.DefaultColor):
			problems = append(problems, fmt.Sprintf("departments[%d].default_color %q is not #RRGGBB", i, d.DefaultColor))
		}
		if _, dup := departments[name]; dup {
			problems = append(problems, fmt.Sprintf("departments[%d].name %q is duplicated", i, name))
		}
		departments[name] = struct{}{}
	}

	emails := make(map[string]struct{}, len(f.Users))
	for i, u := range f.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if strings.TrimSpace(u.Name) == "" {
			problems = append(problems, fmt.Sprintf("users[%d].name is required", i))
		}
		if !strings.Contains(email, "@") {
			problems = append(problems, fmt.Sprintf("users[%d].email %q is invalid", i, u.Email))
		}
		if u.Password == "" {
			problems = append(problems, fmt.Sprintf("users[%d].password is required", i))
		}
		if u.Role != "" && u.Role != persistence.RoleUser && u.Role != persistence.RoleAdmin {
			problems = append(problems, fmt.Sprintf("users[%d].role %q must be user or admin", i, u.Role))
		}
		if u.Department != "" {
			if _, ok := departments[strings.TrimSpace(u.Department)]; !ok {
				problems = append(problems, fmt.Sprintf("users[%d].department %q is not declared", i, u.Department))
			}
		}
		if _, dup := emails[email]; dup {
			problems = append(problems, fmt.Sprintf("users[%d].email %q is duplicated", i, email))
		}
		emails[email] = struct{}{}
	}

	if len(problems) > 0 {
		return fmt.Errorf("seed: invalid document: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Hasher derives a stored password hash. Verifier checks a password against
// an existing hash so unchanged passwords keep their stored hash.
type (
	Hasher   func(password string) (string, error)
	Verifier func(hash, password string) error
)

// Seeder writes seed documents through the persistence repositories.
type Seeder struct {
	Departments persistence.DepartmentRepository
	Users       persistence.UserRepository
	Settings    persistence.SettingsRepository
	Hash        Hasher
	Verify      Verifier
	Now         func() time.Time
	Logger      *slog.Logger
}

// Summary counts the records written by Apply.
type Summary struct {
	Departments int
	Users       int
	Settings    int
}

// Apply upserts departments by name, users by email and the company color.
// Running it twice with the same document leaves the database unchanged
// apart from updated_at.
func (s *Seeder) Apply(ctx context.Context, f File, companyColorKey string) (Summary, error) {
	if s.Departments == nil || s.Users == nil || s.Settings == nil || s.Hash == nil {
		return Summary{}, errors.New("seed: seeder is not configured")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	var summary Summary
	ids := make(map[string]int64, len(f.Departments))
	for i, d := range f.Departments {
		order := d.DisplayOrder
		if order == 0 {
			order = i + 1
		}
		stored, err := s.Departments.UpsertDepartment(ctx, persistence.Department{
			Name:         strings.TrimSpace(d.Name),
			DefaultColor: strings.ToUpper(d.DefaultColor),
			DisplayOrder: order,
		})
		if err != nil {
			return summary, fmt.Errorf("seed: department %q: %w", d.Name, err)
		}
		ids[stored.Name] = stored.ID
		summary.Departments++
	}

	for _, u := range f.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		hash, err := s.passwordHash(ctx, email, u.Password)
		if err != nil {
			return summary, fmt.Errorf("seed: user %q: %w", email, err)
		}

		user := persistence.User{
			Name:              strings.TrimSpace(u.Name),
			Email:             email,
			PasswordHash:      hash,
			Role:              u.Role,
			EmailNotification: u.EmailNotification == nil || *u.EmailNotification,
			CreatedAt:         now(),
			UpdatedAt:         now(),
		}
		if name := strings.TrimSpace(u.Department); name != "" {
			id := ids[name]
			user.DepartmentID = &id
		}
		if _, err := s.Users.UpsertUser(ctx, user); err != nil {
			return summary, fmt.Errorf("seed: user %q: %w", email, err)
		}
		summary.Users++
	}

	if f.Company.DefaultColor != "" {
		if err := s.Settings.PutSetting(ctx, companyColorKey, strings.ToUpper(f.Company.DefaultColor)); err != nil {
			return summary, fmt.Errorf("seed: company color: %w", err)
		}
		summary.Settings++
	}

	logger.InfoContext(ctx, "seed applied",
		"departments", summary.Departments,
		"users", summary.Users,
		"settings", summary.Settings,
	)
	return summary, nil
}

func (s *Seeder) passwordHash(ctx context.Context, email, password string) (string, error) {
	if s.Verify != nil {
		existing, err := s.Users.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			if s.Verify(existing.PasswordHash, password) == nil {
				return existing.PasswordHash, nil
			}
		case !errors.Is(err, persistence.ErrNotFound):
			return "", err
		}
	}
	return s.Hash(password)
}
