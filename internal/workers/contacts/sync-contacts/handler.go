package synccontacts

import (
	"context"
	stderrors "errors"
	"fmt"

	"contact-sync/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "contacts.sync"

// Handler runs the pipeline for Zeebe jobs, so that a BPMN timer process owns the schedule.
type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
}

type HandlerOptions struct {
	Config  *Config
	Service *Service
	Logger  logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("sync-contacts handler requires a service")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for sync-contacts: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Handler{
		config:  opts.Config,
		logger:  log.WithFields(map[string]interface{}{"worker": TaskType}),
		service: opts.Service,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing sync job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	variables, err := h.Execute(ctx)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, variables)
}

// Execute invokes the pipeline and returns the job variables describing the run.
func (h *Handler) Execute(ctx context.Context) (map[string]interface{}, error) {
	summary, err := h.service.Invoke(ctx)
	if stderrors.Is(err, ErrRunInProgress) {
		return map[string]interface{}{
			"syncSkipped": true,
			"syncReason":  "lease_held",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return summaryVariables(summary), nil
}

func summaryVariables(summary *RunSummary) map[string]interface{} {
	variables := map[string]interface{}{
		"syncRunId":       summary.RunID,
		"syncSkipped":     summary.Skipped,
		"syncFetchFailed": summary.FetchFailed,
		"syncFetched":     summary.Fetched,
		"syncSucceeded":   summary.Succeeded,
		"syncFailed":      summary.Failed,
	}
	if summary.Skipped {
		variables["syncReason"] = "outside_operating_window"
	}
	if len(summary.Failures) > 0 {
		variables["syncFailures"] = summary.Failures
	}
	return variables
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, variables map[string]interface{}) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(context.Background()); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Completed sync job", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"succeeded": variables["syncSucceeded"],
		"failed":    variables["syncFailed"],
	})
}

// failJob fails without retries; the next timer event starts a fresh run.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	h.logger.Error("Sync job failed", map[string]interface{}{
		"jobKey": job.GetKey(),
		"error":  err.Error(),
	})

	_, sendErr := client.NewFailJobCommand().
		JobKey(job.GetKey()).
		Retries(0).
		ErrorMessage(err.Error()).
		Send(context.Background())
	if sendErr != nil {
		h.logger.Error("Failed to send fail job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  sendErr.Error(),
		})
	}
}
