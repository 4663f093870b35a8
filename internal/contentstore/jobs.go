// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contentstore

import (
	"context"

	"github.com/google/go-github/v66/github"
)

// # Actions API

/*
DispatchJob triggers a workflow run on the configured branch.

Parameters:
  - context: context.Context
  - workflow: string (Workflow file name, e.g. deploy.yml)
  - inputs: map[string]string (Optional workflow inputs)
*/
func (client *Client) DispatchJob(context context.Context, workflow string, inputs map[string]string) error {
	event := github.CreateWorkflowDispatchEventRequest{Ref: client.branch}
	if len(inputs) > 0 {
		event.Inputs = make(map[string]interface{}, len(inputs))
		for key, value := range inputs {
			event.Inputs[key] = value
		}
	}

	return client.call(context, "dispatch_job", func() (*github.Response, error) {
		return client.github.Actions.CreateWorkflowDispatchEventByFileName(context, client.owner, client.repo, workflow, event)
	})
}

// ListRecentJobs returns the most recent workflow runs, newest first.
func (client *Client) ListRecentJobs(context context.Context, limit int) ([]JobRun, error) {
	if limit <= 0 {
		limit = 1
	}

	options := &github.ListWorkflowRunsOptions{ListOptions: github.ListOptions{PerPage: limit}}

	var runs *github.WorkflowRuns
	err := client.call(context, "list_jobs", func() (*github.Response, error) {
		var response *github.Response
		var err error
		runs, response, err = client.github.Actions.ListRepositoryWorkflowRuns(context, client.owner, client.repo, options)
		return response, err
	})
	if err != nil {
		return nil, err
	}

	jobs := make([]JobRun, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		jobs = append(jobs, JobRun{
			ID:         run.GetID(),
			Name:       run.GetName(),
			Status:     run.GetStatus(),
			Conclusion: run.GetConclusion(),
			HTMLURL:    run.GetHTMLURL(),
		})
	}
	return jobs, nil
}
