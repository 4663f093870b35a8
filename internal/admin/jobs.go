// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

var (
	// ErrDeployFailed is returned when the deploy run completes without success.
	ErrDeployFailed = errors.New("admin: deploy failed")
	// ErrDeployTimeout is returned when the deploy run does not complete in time.
	ErrDeployTimeout = errors.New("admin: deploy status check timed out")
)

// # Workflow Triggers

// TriggerMaintenance dispatches the archive and cleanup job.
func (service *Service) TriggerMaintenance(context context.Context) error {
	if err := service.store.DispatchJob(context, constants.MaintenanceWorkflow, nil); err != nil {
		return err
	}
	service.logger.InfoContext(context, "maintenance_triggered", slog.String("workflow", constants.MaintenanceWorkflow))
	return nil
}

// TriggerDeploy dispatches the site deploy job.
func (service *Service) TriggerDeploy(context context.Context) error {
	if err := service.store.DispatchJob(context, constants.DeployWorkflow, nil); err != nil {
		return err
	}
	service.logger.InfoContext(context, "deploy_triggered", slog.String("workflow", constants.DeployWorkflow))
	return nil
}

// # Deploy Progress

// DeployStep is a stage of a deploy as shown to the admin.
type DeployStep string

const (
	StepTrigger DeployStep = "trigger"
	StepQueue   DeployStep = "queue"
	StepBuild   DeployStep = "build"
	StepDone    DeployStep = "done"
	StepFailed  DeployStep = "failed"
)

// DeployProgress is one observation of the deploy run.
type DeployProgress struct {
	Step    DeployStep           `json:"step"`
	Percent int                  `json:"percent"`
	Message string               `json:"message"`
	Run     *contentstore.JobRun `json:"run,omitempty"`
}

// Terminal reports whether the deploy has finished either way.
func (progress DeployProgress) Terminal() bool {
	return progress.Step == StepDone || progress.Step == StepFailed
}

// DeployStatus observes the most recent deploy run once.
func (service *Service) DeployStatus(context context.Context) (DeployProgress, error) {
	runs, err := service.store.ListRecentJobs(context, constants.RecentRunsLimit)
	if err != nil {
		return DeployProgress{}, err
	}
	return deployProgress(runs), nil
}

func deployProgress(runs []contentstore.JobRun) DeployProgress {
	var run *contentstore.JobRun
	for i := range runs {
		if runs[i].Name == constants.DeployRunName {
			run = &runs[i]
			break
		}
	}

	if run == nil {
		return DeployProgress{Step: StepQueue, Percent: 20, Message: "Waiting for workflow to start..."}
	}

	switch run.Status {
	case contentstore.RunQueued:
		return DeployProgress{Step: StepQueue, Percent: 25, Message: "Workflow queued...", Run: run}
	case contentstore.RunInProgress:
		return DeployProgress{Step: StepBuild, Percent: 50, Message: "Building and deploying...", Run: run}
	case contentstore.RunCompleted:
		if run.Conclusion == contentstore.RunSuccess {
			return DeployProgress{Step: StepDone, Percent: 100, Message: "Deployment successful!", Run: run}
		}
		return DeployProgress{Step: StepFailed, Percent: 50, Message: "Deployment failed: " + run.Conclusion, Run: run}
	default:
		return DeployProgress{Step: StepQueue, Percent: 20, Message: "Waiting for workflow to start...", Run: run}
	}
}

/*
WatchDeploy polls the deploy run until it completes.

Description: Polls every 2s while waiting or queued and every 3s while the run
is in progress, reporting each observation to progress. Listing failures are
retried on the next poll.

Parameters:
  - context: context.Context
  - progress: func(DeployProgress) (Optional observer)

Returns:
  - DeployProgress: The final observation
  - error: ErrDeployFailed, ErrDeployTimeout, or the context error
*/
func (service *Service) WatchDeploy(context context.Context, progress func(DeployProgress)) (DeployProgress, error) {
	var last DeployProgress
	for poll := 1; poll <= service.maxPolls; poll++ {
		observed, err := service.DeployStatus(context)
		wait := service.pollQueued

		if err != nil {
			service.logger.DebugContext(context, "deploy_status_failed", slog.String("error", err.Error()))
		} else {
			last = observed
			if progress != nil {
				progress(observed)
			}
			switch observed.Step {
			case StepDone:
				return observed, nil
			case StepFailed:
				return observed, fmt.Errorf("%w: %s", ErrDeployFailed, observed.Run.Conclusion)
			case StepBuild:
				wait = service.pollRunning
			}
		}

		if err := pause(context, wait); err != nil {
			return last, err
		}
	}

	return last, ErrDeployTimeout
}

// Deploy triggers the deploy job and watches it to completion.
func (service *Service) Deploy(context context.Context, progress func(DeployProgress)) (DeployProgress, error) {
	if err := service.TriggerDeploy(context); err != nil {
		return DeployProgress{Step: StepFailed, Message: "Workflow not found or failed!"}, err
	}
	if progress != nil {
		progress(DeployProgress{Step: StepTrigger, Percent: 15, Message: "Waiting for workflow to start..."})
	}
	if err := pause(context, service.pollQueued); err != nil {
		return DeployProgress{}, err
	}
	return service.WatchDeploy(context, progress)
}
