package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/aTrapDeer/portfolio-api/internal/auth"
	"github.com/aTrapDeer/portfolio-api/internal/models"
	"github.com/aTrapDeer/portfolio-api/internal/payload"
	"github.com/aTrapDeer/portfolio-api/internal/revalidate"
	"github.com/aTrapDeer/portfolio-api/internal/store"
)

const (
	profileEntity = "Profile"
	profileKey    = "profile"
	passwordField = "adminPassword"
)

// ProfileHandler serves the profile collection, where listing means
// fetching the one active profile.
type ProfileHandler struct {
	profiles        *store.Profiles
	defaultPassword string
	notifier        *revalidate.Notifier
	log             *zap.Logger
}

// NewProfileHandler returns a ProfileHandler. defaultPassword is used for
// profiles created without an adminPassword.
func NewProfileHandler(profiles *store.Profiles, defaultPassword string, notifier *revalidate.Notifier, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles:        profiles,
		defaultPassword: defaultPassword,
		notifier:        notifier,
		log:             log,
	}
}

func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Active(r.Context())
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Create inserts a profile and makes it the active one.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	var profile models.Profile
	if err := payload.Decode(body, &profile); err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}
	if profile.AdminPassword == "" {
		profile.AdminPassword = h.defaultPassword
	}

	err = payload.Validate(&profile)
	if profile.AdminPassword == "" {
		err = payload.With(err, passwordField, payload.MsgRequired)
	} else if err == nil {
		err = setPassword(&profile, profile.AdminPassword)
	}
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	if err := h.profiles.CreateActive(r.Context(), &profile); err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	h.notifier.Trigger(profileKey)
	writeJSON(w, http.StatusCreated, &profile)
}

func (h *ProfileHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}
	profile, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update merges the body into the stored profile. PUT and PATCH both land
// here.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}
	profile, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	storedHash := profile.AdminPassword
	if err := payload.Decode(body, profile); err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	err = payload.Validate(profile)
	if profile.AdminPassword != storedHash {
		if profile.AdminPassword == "" {
			err = payload.With(err, passwordField, payload.MsgBlank)
		} else if err == nil {
			err = setPassword(profile, profile.AdminPassword)
		}
	}
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	if err := h.profiles.Save(r.Context(), profile); err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	h.notifier.Trigger(profileKey)
	writeJSON(w, http.StatusOK, profile)
}

// Activate makes the addressed profile the one List returns.
func (h *ProfileHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}
	profile, err := h.profiles.Activate(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, profileEntity, err)
		return
	}

	h.notifier.Trigger(profileKey)
	writeJSON(w, http.StatusOK, profile)
}

// setPassword replaces the plain password on p with its hash.
func setPassword(p *models.Profile, plain string) error {
	if len(plain) > auth.MaxPasswordLength {
		return payload.NewValidationError(passwordField,
			fmt.Sprintf("Ensure this field has no more than %d characters.", auth.MaxPasswordLength))
	}
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return err
	}
	p.AdminPassword = hash
	return nil
}
