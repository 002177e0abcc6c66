package handler

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"incorpapi/internal/http/middleware"
	"incorpapi/internal/model"
	"incorpapi/internal/service"
)

type reopenRequest struct {
	Step model.Step `json:"step"`
}

type quoteRequest struct {
	Shareholders []model.Shareholder `json:"shareholders"`
	Directors    []model.Director    `json:"directors"`
}

func requester(c *fiber.Ctx) model.Requester {
	r, _ := middleware.RequesterFrom(c)
	return r
}

// CreateRegistration godoc
// @Summary      Create a registration
// @Description  Starts a registration with the contact-details submission. Repeating an id returns the stored registration with 200.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        body  body      service.CreateInput  true  "first submission"
// @Success      201   {object}  model.Registration
// @Success      200   {object}  model.Registration
// @Failure      400   {object}  errorPayload
// @Failure      403   {object}  errorPayload
// @Security     BearerAuth
// @Router       /registrations [post]
func CreateRegistration(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreateInput
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAYLOAD", "invalid registration payload")
		}
		reg, created, err := svc.Create(c.UserContext(), requester(c), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(reg)
	}
}

// ListRegistrations godoc
// @Summary      List registrations
// @Description  Registrations owned by or shared with the caller. Administrators see all.
// @Tags         registrations
// @Produce      json
// @Param        limit   query     int  false  "page size"  default(10)
// @Param        offset  query     int  false  "offset"     default(0)
// @Success      200     {object}  service.RegistrationListResult
// @Failure      400     {object}  errorPayload
// @Security     BearerAuth
// @Router       /registrations [get]
func ListRegistrations(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), requester(c), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetRegistration godoc
// @Summary   Get a registration
// @Tags      registrations
// @Produce   json
// @Param     id   path      string  true  "registration id"
// @Success   200  {object}  model.Registration
// @Failure   403  {object}  errorPayload
// @Failure   404  {object}  errorPayload
// @Security  BearerAuth
// @Router    /registrations/{id} [get]
func GetRegistration(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reg, err := svc.Get(c.UserContext(), requester(c), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(reg)
	}
}

// PatchRegistration godoc
// @Summary      Update a registration
// @Description  Merges a sparse JSON object. Unknown keys are ignored; step skips and contradictory review flags are rejected.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        id    path      string  true  "registration id"
// @Param        body  body      object  true  "fields to change"
// @Success      200   {object}  service.PatchResult
// @Failure      400   {object}  errorPayload
// @Failure      403   {object}  errorPayload
// @Failure      404   {object}  errorPayload
// @Security     BearerAuth
// @Router       /registrations/{id} [patch]
func PatchRegistration(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Patch(c.UserContext(), requester(c), c.Params("id"), c.Body())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ReopenRegistration godoc
// @Summary   Reopen an earlier step
// @Tags      registrations
// @Accept    json
// @Produce   json
// @Param     id    path      string         true  "registration id"
// @Param     body  body      reopenRequest  true  "target step"
// @Success   200   {object}  model.Registration
// @Failure   400   {object}  errorPayload
// @Failure   403   {object}  errorPayload
// @Security  BearerAuth
// @Router    /registrations/{id}/reopen [post]
func ReopenRegistration(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body reopenRequest
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_STEP", "invalid step")
		}
		reg, err := svc.Reopen(c.UserContext(), requester(c), c.Params("id"), body.Step)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(reg)
	}
}

// DeleteRegistration godoc
// @Summary   Delete a registration and its documents
// @Tags      registrations
// @Param     id  path  string  true  "registration id"
// @Success   204
// @Failure   403  {object}  errorPayload
// @Failure   404  {object}  errorPayload
// @Security  BearerAuth
// @Router    /registrations/{id} [delete]
func DeleteRegistration(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), requester(c), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RegistrationFees godoc
// @Summary   Price a registration's roster with current rates
// @Tags      fees
// @Produce   json
// @Param     id   path      string  true  "registration id"
// @Success   200  {object}  model.FeeBreakdown
// @Failure   404  {object}  errorPayload
// @Security  BearerAuth
// @Router    /registrations/{id}/fees [get]
func RegistrationFees(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fees, err := svc.Fees(c.UserContext(), requester(c), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fees)
	}
}

// QuoteFees godoc
// @Summary   Quote fees for a roster
// @Tags      fees
// @Accept    json
// @Produce   json
// @Param     body  body      quoteRequest  true  "roster"
// @Success   200   {object}  model.FeeBreakdown
// @Failure   400   {object}  errorPayload
// @Security  BearerAuth
// @Router    /fees/quote [post]
func QuoteFees(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body quoteRequest
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAYLOAD", "invalid roster")
		}
		return c.JSON(svc.Quote(body.Shareholders, body.Directors))
	}
}

// DocumentLinks godoc
// @Summary   Download links for a document slot
// @Tags      documents
// @Produce   json
// @Param     id    path      string  true  "registration id"
// @Param     slot  path      string  true  "document slot"
// @Success   200   {array}   service.DocumentLink
// @Failure   404   {object}  errorPayload
// @Security  BearerAuth
// @Router    /registrations/{id}/documents/{slot} [get]
func DocumentLinks(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		links, err := svc.DocumentLinks(c.UserContext(), requester(c), c.Params("id"), c.Params("slot"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": links})
	}
}

// SweepExpiry godoc
// @Summary   Run an expiry sweep now
// @Tags      admin
// @Produce   json
// @Success   200  {object}  expiry.Summary
// @Failure   403  {object}  errorPayload
// @Security  BearerAuth
// @Router    /admin/expiry/sweep [post]
func SweepExpiry(svc service.RegistrationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := svc.SweepExpired(c.UserContext(), requester(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sum)
	}
}
