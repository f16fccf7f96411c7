package handlers

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/carematch/carematch/internal/auth"
	"github.com/carematch/carematch/internal/services"
	"github.com/carematch/carematch/internal/types"
)

// JobHandler handles HTTP requests for the matching workflow of a job
type JobHandler struct {
	service *services.Matching
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(service *services.Matching) *JobHandler {
	return &JobHandler{
		service: service,
	}
}

func jobParams(c *fiber.Ctx) (*auth.User, string, error) {
	user, ok := auth.UserFrom(c)
	if !ok {
		return nil, "", c.Status(fiber.StatusUnauthorized).JSON(types.ErrInvalidInput(ErrMsgNoUser))
	}
	jobID := c.Params("jobId")
	if jobID == "" {
		return nil, "", c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgJobIDRequired))
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, "", c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidJobID))
	}
	return user, jobID, nil
}

// GetConfirmed returns the candidates who confirmed availability and the job deadline
func (h *JobHandler) GetConfirmed(c *fiber.Ctx) error {
	user, jobID, err := jobParams(c)
	if user == nil {
		return err
	}

	resp, err := h.service.ListConfirmed(c.Context(), user.ID, jobID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(resp)
}

// Select locks the job to a candidate and returns the opened conversation
func (h *JobHandler) Select(c *fiber.Ctx) error {
	user, jobID, err := jobParams(c)
	if user == nil {
		return err
	}

	var req types.FreelancerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	conversationID, err := h.service.Select(c.Context(), user.ID, jobID, req.FreelancerID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(types.SelectResponse{ConversationID: conversationID})
}

// Decline removes a candidate from the job
func (h *JobHandler) Decline(c *fiber.Ctx) error {
	user, jobID, err := jobParams(c)
	if user == nil {
		return err
	}

	var req types.FreelancerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	if err := h.service.Decline(c.Context(), user.ID, jobID, req.FreelancerID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(types.Success(nil))
}

// Restart starts a new notification round for the job
func (h *JobHandler) Restart(c *fiber.Ctx) error {
	user, jobID, err := jobParams(c)
	if user == nil {
		return err
	}

	resp, err := h.service.Restart(c.Context(), user.ID, jobID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(resp)
}

// Confirm records the calling freelancer's availability for the job
func (h *JobHandler) Confirm(c *fiber.Ctx) error {
	user, jobID, err := jobParams(c)
	if user == nil {
		return err
	}

	var req types.ConfirmRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
		}
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}

	if err := h.service.Confirm(c.Context(), user.ID, jobID, req); err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(types.Success(nil))
}
