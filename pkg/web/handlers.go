package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/zigral/zigral/pkg/contextstore"
	"github.com/zigral/zigral/pkg/models"
	"github.com/zigral/zigral/pkg/orchestrator"
	"github.com/zigral/zigral/pkg/registry"
)

const (
	ServiceName = "zigral-orchestrator"
	Version     = "0.1.0"
)

// Executor is the slice of the orchestrator the HTTP layer depends on.
type Executor interface {
	Execute(ctx context.Context, cmd models.Command) (*orchestrator.Result, error)
}

type APIHandlers struct {
	executor  Executor
	store     contextstore.Store
	registry  *registry.Registry
	validator *validator.Validate
}

func NewAPIHandlers(
	executor Executor,
	store contextstore.Store,
	reg *registry.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		executor:  executor,
		store:     store,
		registry:  reg,
		validator: validator,
	}
}

func (h *APIHandlers) ExecuteCommand(c fiber.Ctx) error {
	var req CommandRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	cmd := req.ToCommand()
	if err := cmd.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executor.Execute(c.Context(), cmd)
	if err != nil {
		if errors.Is(err, models.ErrEmptyCommand) || errors.Is(err, models.ErrInvalidContext) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	storeCheck := "ok"
	storeOk := true

	if err := h.store.HealthCheck(c.Context()); err != nil {
		storeCheck = err.Error()
		storeOk = false
	}

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && storeOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"service": ServiceName,
		"version": Version,
		"checkers": fiber.Map{
			"registry":      registryCheck,
			"context_store": storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateContext(c fiber.Ctx) error {
	var req CreateContextRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	entry := &models.ContextEntry{
		JobID:       req.JobID,
		JobType:     req.JobType,
		ContextData: req.ContextData,
	}
	if entry.JobType == "" {
		entry.JobType = models.DefaultJobType
	}

	if err := entry.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.store.Create(c.Context(), entry)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetContext(c fiber.Ctx) error {
	jobID := c.Params("jobID")
	if jobID == "" {
		return badRequest(c, "Job ID is required")
	}

	entry, err := h.store.Get(c.Context(), jobID)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(entry)
}

func (h *APIHandlers) UpdateContext(c fiber.Ctx) error {
	jobID := c.Params("jobID")
	if jobID == "" {
		return badRequest(c, "Job ID is required")
	}

	var req UpdateContextRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.JobID != "" && req.JobID != jobID {
		return badRequest(c, "Job ID in body does not match URL")
	}

	entry := &models.ContextEntry{
		JobID:       jobID,
		JobType:     req.JobType,
		ContextData: req.ContextData,
		Version:     req.Version,
	}
	if entry.JobType == "" {
		entry.JobType = models.DefaultJobType
	}

	if err := entry.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.store.Update(c.Context(), jobID, entry)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteContext(c fiber.Ctx) error {
	jobID := c.Params("jobID")
	if jobID == "" {
		return badRequest(c, "Job ID is required")
	}

	if err := h.store.Delete(c.Context(), jobID); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
