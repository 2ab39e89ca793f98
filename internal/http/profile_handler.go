package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/checkout"
	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/internal/geo"
	profilesrepo "github.com/fjod/butchershop/internal/profiles/repository"
	"github.com/fjod/butchershop/pkg/logger"
)

type ProfileHandler struct {
	profiles profilesrepo.ProfileRepository
	trackers *geo.Trackers
	sessions *checkout.Sessions
	timeout  time.Duration
	maxBody  int64
	log      *zap.Logger
}

func NewProfileHandler(profiles profilesrepo.ProfileRepository, trackers *geo.Trackers, sessions *checkout.Sessions, timeout time.Duration, maxBody int64, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		trackers: trackers,
		sessions: sessions,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type ProfileRequestDTO struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	HouseNo  string `json:"houseNo"`
	Street   string `json:"street"`
	Landmark string `json:"landmark"`
	Pincode  string `json:"pincode"`
}

type LocateRequestDTO struct {
	Address string `json:"address"`
}

type ProfileResponse struct {
	Profile      *domain.Profile `json:"profile"`
	NeedsProfile bool            `json:"needs_profile"`
	Map          geo.MapState    `json:"map"`
}

// GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	id := identityFromContext(r.Context())
	profile, err := loadProfile(ctx, h.profiles, id.UserID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, ProfileResponse{
		Profile:      profile,
		NeedsProfile: profile == nil,
		Map:          h.mapState(id.UserID),
	})
}

// PUT /api/v1/profile
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	id := identityFromContext(r.Context())
	var req ProfileRequestDTO
	if err := decodeBody(r, h.maxBody, profileLoader, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	profile := &domain.Profile{
		UserID:   id.UserID,
		Email:    id.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		HouseNo:  req.HouseNo,
		Street:   req.Street,
		Landmark: req.Landmark,
		Pincode:  req.Pincode,
	}
	profile.Address = profile.ComposeAddress()

	if err := h.profiles.SaveProfile(ctx, profile); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	saved, err := loadProfile(ctx, h.profiles, id.UserID)
	if err != nil || saved == nil {
		// the write went through; fall back to what was sent
		saved = profile
	}

	if flow, err := h.sessions.Get(id.UserID); err == nil {
		flow.SetProfile(saved)
	}
	h.trackers.Get(id.UserID).Update(saved.GeocodeQuery())

	logger.FromContext(ctx, h.log).Info("profile saved", zap.String("user_id", id.UserID))
	respondJSON(w, http.StatusOK, ProfileResponse{
		Profile: saved,
		Map:     h.mapState(id.UserID),
	})
}

// POST /api/v1/profile/locate
// Feeds an in-progress address edit to the user's map tracker; the lookup happens after the debounce.
func (h *ProfileHandler) Locate(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	var req LocateRequestDTO
	if err := decodeBody(r, h.maxBody, locateLoader, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	t := h.trackers.Get(id.UserID)
	t.Update(req.Address)
	respondJSON(w, http.StatusAccepted, t.State())
}

// GET /api/v1/profile/location
func (h *ProfileHandler) Location(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	respondJSON(w, http.StatusOK, h.mapState(id.UserID))
}

func (h *ProfileHandler) mapState(userID string) geo.MapState {
	if t, ok := h.trackers.Peek(userID); ok {
		return t.State()
	}
	return geo.MapState{Center: domain.DefaultMapCenter, Status: geo.StatusIdle}
}
