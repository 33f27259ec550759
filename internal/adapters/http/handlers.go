package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/usecases"
)

// createTourRequest is the JSON body for POST /v1/tours.
type createTourRequest struct {
	BudgetMinutes int              `json:"budget_minutes"`
	Theme         string           `json:"theme"`
	SoundEffects  bool             `json:"sound_effects"`
	Personality   string           `json:"personality"`
	Interactive   bool             `json:"interactive"`
	Start         *domain.GeoPoint `json:"start,omitempty"`
	DynamicSearch bool             `json:"dynamic_search"`
}

// CreateTourHandler builds a route and registers a new tour session.
func CreateTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createTourRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.BudgetMinutes < 0 {
			return errBadRequest(c, "budget_minutes must not be negative")
		}

		session, err := deps.Tours.Create(c.UserContext(), usecases.CreateTourRequest{
			BudgetMinutes: req.BudgetMinutes,
			Theme:         req.Theme,
			SoundEffects:  req.SoundEffects,
			Personality:   domain.GuidePersonality(req.Personality),
			Interactive:   req.Interactive,
			Start:         req.Start,
			DynamicSearch: req.DynamicSearch,
		})
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.Status(201).JSON(session.View())
	}
}

// GetTourHandler returns a snapshot of a tour session.
func GetTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Tours.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "tour not found")
		}
		return c.JSON(session.View())
	}
}

// DeleteTourHandler removes a tour session.
func DeleteTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Tours.Delete(c.Params("id")); err != nil {
			return errNotFound(c, "tour not found")
		}
		return c.SendStatus(204)
	}
}

// LocationHandler records a position report and returns either a proximity
// hint for the current stop or walking directions toward it.
func LocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var loc domain.GeoPoint
		if err := c.BodyParser(&loc); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			return errBadRequest(c, "lat/lng out of range")
		}

		update, err := deps.Tours.UpdateLocation(c.UserContext(), c.Params("id"), loc)
		if err != nil {
			return errNotFound(c, "tour not found")
		}
		return c.JSON(update)
	}
}

// TransitionHandler applies a lifecycle transition to a tour.
func TransitionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Status == "" {
			return errBadRequest(c, "status is required")
		}

		err := deps.Tours.Transition(c.UserContext(), c.Params("id"), domain.TourStatus(req.Status))
		switch {
		case errors.Is(err, domain.ErrTourNotFound):
			return errNotFound(c, "tour not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return errConflict(c, "transition not allowed from current state")
		case err != nil:
			return errInternal(c, err.Error())
		}

		return c.JSON(fiber.Map{"status": req.Status})
	}
}

// AdvanceHandler moves the route cursor to the next stop.
func AdvanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := deps.Tours.Advance(c.UserContext(), c.Params("id"))
		if err != nil {
			return errNotFound(c, "tour not found")
		}
		return c.JSON(result)
	}
}

// ReplanHandler runs one replanning utterance against a tour. Skip requests
// also advance the cursor; end requests close the tour out.
func ReplanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Utterance string `json:"utterance"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Utterance == "" {
			return errBadRequest(c, "utterance is required")
		}

		session, err := deps.Tours.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "tour not found")
		}

		result, err := deps.Replans.Replan(c.UserContext(), session, req.Utterance)
		if err != nil {
			return errInternal(c, err.Error())
		}
		LoggerFromCtx(c.UserContext()).Info("replan handled",
			"tour_id", session.ID, "action", result.Action, "route_updated", result.RouteUpdated)

		switch {
		case result.Skipped:
			if _, err := deps.Tours.Advance(c.UserContext(), session.ID); err != nil {
				return errInternal(c, err.Error())
			}
		case result.Action == domain.ActionEndTour:
			// Already-complete tours reject the transition; the replan answer
			// stands either way.
			_ = deps.Tours.Transition(c.UserContext(), session.ID, domain.StatusComplete)
		}

		return c.JSON(result)
	}
}

// ConfirmReplanHandler commits one of the detour candidates offered by a
// previous browse-mode replan.
func ConfirmReplanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Choice int `json:"choice"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		session, err := deps.Tours.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "tour not found")
		}

		result, err := deps.Replans.ConfirmInsertion(session, req.Choice)
		switch {
		case errors.Is(err, domain.ErrNoPendingChoices):
			return errConflict(c, "no pending detour choices for this tour")
		case errors.Is(err, domain.ErrInfeasibleInsertion):
			return errUnprocessable(c, "the chosen detour no longer fits the route")
		case err != nil:
			return errInternal(c, err.Error())
		}

		return c.JSON(result)
	}
}

// NarrationHandler returns the narration script for the current stop, or the
// tour intro when ?intro=true.
func NarrationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Tours.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "tour not found")
		}

		if c.QueryBool("intro", false) {
			script := deps.Narration.Intro(c.UserContext(), session.Preferences)
			return c.JSON(fiber.Map{"script": script, "intro": true})
		}

		route := session.RouteCopy()
		stop := route.CurrentStop()
		if stop == nil {
			return errUnprocessable(c, "tour has no current stop to narrate")
		}

		script := deps.Narration.ForStop(c.UserContext(), session.Preferences, *stop)
		session.SetNarration(domain.NarrationProgress{StopID: stop.ID, Script: script})

		return c.JSON(fiber.Map{
			"stop_id":   stop.ID,
			"stop_name": stop.Name,
			"script":    script,
		})
	}
}

// AskHandler routes a free-form message: replanning requests go through the
// replanner, everything else is answered as conversation.
func AskHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Message string `json:"message"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Message == "" {
			return errBadRequest(c, "message is required")
		}

		session, err := deps.Tours.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "tour not found")
		}

		if deps.Narration.Classify(c.UserContext(), req.Message) {
			result, err := deps.Replans.Replan(c.UserContext(), session, req.Message)
			if err != nil {
				return errInternal(c, err.Error())
			}
			return c.JSON(fiber.Map{"type": "replan", "replan": result})
		}

		answer := deps.Narration.Answer(c.UserContext(), session, req.Message)
		return c.JSON(fiber.Map{"type": "chat", "answer": answer})
	}
}

// SpeakHandler synthesizes text to audio. The response body is raw MP3.
func SpeakHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Text   string `json:"text"`
			Gender string `json:"gender"`
			Tone   string `json:"tone"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		session, err := deps.Tours.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "tour not found")
		}

		// Default to the most recently generated narration script.
		text := req.Text
		if text == "" {
			text = session.Narration().Script
		}
		if text == "" {
			return errBadRequest(c, "text is required and no narration has been generated yet")
		}

		audio, err := deps.Speech.Speak(c.UserContext(), text, req.Gender, req.Tone)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Content-Type", "audio/mpeg")
		return c.Send(audio)
	}
}

// proximityCheckRequest is the JSON body for POST /v1/proximity-check.
type proximityCheckRequest struct {
	Current         domain.GeoPoint `json:"current"`
	POI             domain.GeoPoint `json:"poi"`
	ThresholdMeters float64         `json:"threshold_meters"`
}

// ProximityCheckHandler reports whether two points are within a threshold.
func ProximityCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req proximityCheckRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.ThresholdMeters < 0 {
			return errBadRequest(c, "threshold_meters must not be negative")
		}

		within := deps.Tours.CheckProximity(req.Current, req.POI, req.ThresholdMeters)
		dirs := usecases.EstimateDirections(req.Current, req.POI)

		return c.JSON(fiber.Map{
			"within":          within,
			"distance_meters": dirs.DistanceMeters,
		})
	}
}

// ListPOIsHandler lists catalog entries, optionally filtered by theme.
func ListPOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var pois []domain.CatalogPOI
		if theme := c.Query("theme"); theme != "" {
			pois = deps.Catalog.ByTheme(theme)
		} else {
			pois = deps.Catalog.All()
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(pois)
		if offset >= total {
			pois = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			pois = pois[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(PaginatedResponse{Data: pois, Pagination: pg})
	}
}
