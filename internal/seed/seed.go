// Package seed replaces the profile and project tables with the content of
// a JSON seed document.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aTrapDeer/portfolio-api/internal/auth"
	"github.com/aTrapDeer/portfolio-api/internal/models"
	"github.com/aTrapDeer/portfolio-api/internal/payload"
	"github.com/aTrapDeer/portfolio-api/internal/store"
)

var (
	ErrParse           = errors.New("invalid seed document")
	ErrNoPassword      = errors.New("no admin password in the seed document or the configuration")
	ErrInvalidCategory = errors.New("invalid project category")
)

// Document is a parsed seed file. Profile is nil when the file has none.
type Document struct {
	Profile  *models.Profile
	Projects []models.Project
}

type rawDocument struct {
	Profile  json.RawMessage   `json:"profile"`
	Projects []json.RawMessage `json:"projects"`
}

// Load reads and parses the seed document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed document: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Entries use the API's wire field names;
// ids and timestamps in the file are ignored and unknown keys are skipped.
func Parse(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc := &Document{Projects: make([]models.Project, 0, len(raw.Projects))}
	if len(raw.Profile) > 0 && string(raw.Profile) != "null" {
		doc.Profile = &models.Profile{}
		if err := payload.Decode(raw.Profile, doc.Profile); err != nil {
			return nil, fmt.Errorf("%w: profile: %v", ErrParse, err)
		}
	}
	for i, entry := range raw.Projects {
		var p models.Project
		if err := payload.Decode(entry, &p); err != nil {
			return nil, fmt.Errorf("%w: project %d: %v", ErrParse, i+1, err)
		}
		doc.Projects = append(doc.Projects, p)
	}
	return doc, nil
}

type Options struct {
	// AdminPassword is used when the seed profile has no adminPassword.
	AdminPassword string
	Logger        *zap.Logger
}

// Result reports what an import created and the table sizes afterwards.
type Result struct {
	ProfilesCreated int
	ProjectsCreated int
	ProfileCount    int64
	ProjectCount    int64
}

// Import deletes every profile and project, then inserts the document's
// profile as the active one and its projects in document order.
//
// Everything that can be checked up front is checked before the delete.
// The import is not transactional: a failed insert stops the run and leaves
// whatever was inserted so far.
func Import(ctx context.Context, db *gorm.DB, doc *Document, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var res Result

	profile, err := prepareProfile(doc.Profile, opts.AdminPassword)
	if err != nil {
		return res, err
	}
	projectRows, err := prepareProjects(doc.Projects)
	if err != nil {
		return res, err
	}

	profiles := store.NewProfiles(db)
	projects := store.NewRepository[models.Project](db)

	deletedProfiles, err := profiles.DeleteAll(ctx)
	if err != nil {
		return res, err
	}
	deletedProjects, err := projects.DeleteAll(ctx)
	if err != nil {
		return res, err
	}
	log.Info("existing rows deleted",
		zap.Int64("profiles", deletedProfiles),
		zap.Int64("projects", deletedProjects))

	if profile != nil {
		if err := profiles.CreateActive(ctx, profile); err != nil {
			return res, err
		}
		res.ProfilesCreated++
		log.Info("profile imported", zap.String("name", profile.Name))
	} else {
		log.Warn("seed document has no profile")
	}

	for i := range projectRows {
		p := &projectRows[i]
		if err := projects.Create(ctx, p); err != nil {
			return res, fmt.Errorf("project %d (%s): %w", i+1, p.Title, err)
		}
		res.ProjectsCreated++
		log.Debug("project imported", zap.Int("index", i+1), zap.String("title", p.Title))
	}

	if res.ProfileCount, err = profiles.Count(ctx); err != nil {
		return res, err
	}
	if res.ProjectCount, err = projects.Count(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// prepareProfile resolves and hashes the password of a copy of p.
func prepareProfile(p *models.Profile, fallbackPassword string) (*models.Profile, error) {
	if p == nil {
		return nil, nil
	}
	row := *p
	password := row.AdminPassword
	if password == "" {
		password = fallbackPassword
	}
	if password == "" {
		return nil, ErrNoPassword
	}
	if len(password) > auth.MaxPasswordLength {
		return nil, fmt.Errorf("admin password longer than %d bytes", auth.MaxPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	row.AdminPassword = hash
	row.AboutMe = nilIfEmpty(row.AboutMe)
	row.CV = nilIfEmpty(row.CV)
	return &row, nil
}

// prepareProjects defaults missing categories and rejects unknown ones.
func prepareProjects(in []models.Project) ([]models.Project, error) {
	out := make([]models.Project, len(in))
	for i, p := range in {
		switch {
		case p.Category == "":
			p.Category = models.CategoryOther
		case !p.Category.Valid():
			return nil, fmt.Errorf("%w: project %d (%s): %q", ErrInvalidCategory, i+1, p.Title, p.Category)
		}
		p.GithubURL = nilIfEmpty(p.GithubURL)
		p.LiveURL = nilIfEmpty(p.LiveURL)
		out[i] = p
	}
	return out, nil
}

func nilIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
