// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/admin"
	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/contentstore/storetest"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

func deployRun(status, conclusion string) []contentstore.JobRun {
	return []contentstore.JobRun{
		{ID: 1, Name: "Archive chapters", Status: contentstore.RunCompleted, Conclusion: contentstore.RunSuccess},
		{ID: 2, Name: constants.DeployRunName, Status: status, Conclusion: conclusion},
	}
}

/*
TestTriggers verifies both workflows are dispatched on the store branch.
*/
func TestTriggers(t *testing.T) {
	server := storetest.New(t)
	service, _ := newService(t, server)

	require.NoError(t, service.TriggerMaintenance(background()))
	require.NoError(t, service.TriggerDeploy(background()))

	dispatches := server.Dispatches()
	require.Len(t, dispatches, 2)
	assert.Equal(t, constants.MaintenanceWorkflow, dispatches[0].Workflow)
	assert.Equal(t, constants.DeployWorkflow, dispatches[1].Workflow)
	assert.Equal(t, storetest.Branch, dispatches[1].Ref)
}

/*
TestWatchDeploy verifies the watcher follows the run through its states.
*/
func TestWatchDeploy(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := storetest.New(t)
		server.Runs = func(call int) []contentstore.JobRun {
			switch call {
			case 1:
				return nil
			case 2:
				return deployRun(contentstore.RunQueued, "")
			case 3:
				return deployRun(contentstore.RunInProgress, "")
			default:
				return deployRun(contentstore.RunCompleted, contentstore.RunSuccess)
			}
		}
		service, _ := newService(t, server)

		var steps []admin.DeployStep
		final, err := service.Deploy(background(), func(progress admin.DeployProgress) {
			steps = append(steps, progress.Step)
		})
		require.NoError(t, err)

		assert.Equal(t, 100, final.Percent)
		assert.Equal(t, []admin.DeployStep{
			admin.StepTrigger, admin.StepQueue, admin.StepQueue, admin.StepBuild, admin.StepDone,
		}, steps)
		assert.Len(t, server.Dispatches(), 1)
	})

	t.Run("Failed", func(t *testing.T) {
		server := storetest.New(t)
		server.Runs = func(int) []contentstore.JobRun { return deployRun(contentstore.RunCompleted, "failure") }
		service, _ := newService(t, server)

		final, err := service.WatchDeploy(background(), nil)
		assert.ErrorIs(t, err, admin.ErrDeployFailed)
		assert.Equal(t, admin.StepFailed, final.Step)
		assert.Equal(t, "Deployment failed: failure", final.Message)
	})

	t.Run("Timeout", func(t *testing.T) {
		server := storetest.New(t)
		server.Runs = func(int) []contentstore.JobRun { return deployRun(contentstore.RunQueued, "") }
		service, _ := newService(t, server)

		_, err := service.WatchDeploy(background(), nil)
		assert.ErrorIs(t, err, admin.ErrDeployTimeout)
		assert.Equal(t, 10, server.Calls(storetest.OpListRuns))
	})
}
