package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hyperengineering/pulse/internal/types"
)

// Goals lists every goal.
func (c *Client) Goals(ctx context.Context) ([]types.HealthGoal, error) {
	var out []types.HealthGoal
	if err := c.do(ctx, http.MethodGet, "/api/v1/goals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGoal creates a goal and its first check-in reminder.
func (c *Client) CreateGoal(ctx context.Context, g types.NewHealthGoal) (*types.HealthGoal, error) {
	var out types.HealthGoal
	if err := c.do(ctx, http.MethodPost, "/api/v1/goals", g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Goal fetches one goal.
func (c *Client) Goal(ctx context.Context, id string) (*types.HealthGoal, error) {
	var out types.HealthGoal
	if err := c.do(ctx, http.MethodGet, "/api/v1/goals/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGoal removes a goal and its reminders.
func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/goals/"+url.PathEscape(id), nil, nil)
}

// CheckIn logs progress against a goal.
func (c *Client) CheckIn(ctx context.Context, goalID string, req types.CheckInRequest) (*types.GoalCheckIn, error) {
	var out types.GoalCheckIn
	if err := c.do(ctx, http.MethodPost, "/api/v1/goals/"+url.PathEscape(goalID)+"/checkins", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckIns lists a goal's check-ins, oldest first.
func (c *Client) CheckIns(ctx context.Context, goalID string) ([]types.GoalCheckIn, error) {
	var out []types.GoalCheckIn
	if err := c.do(ctx, http.MethodGet, "/api/v1/goals/"+url.PathEscape(goalID)+"/checkins", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PauseGoal pauses an active or overdue goal.
func (c *Client) PauseGoal(ctx context.Context, id string) (*types.HealthGoal, error) {
	return c.setPaused(ctx, id, "pause")
}

// ResumeGoal resumes a paused goal.
func (c *Client) ResumeGoal(ctx context.Context, id string) (*types.HealthGoal, error) {
	return c.setPaused(ctx, id, "resume")
}

func (c *Client) setPaused(ctx context.Context, id, action string) (*types.HealthGoal, error) {
	var out types.HealthGoal
	if err := c.do(ctx, http.MethodPost, "/api/v1/goals/"+url.PathEscape(id)+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshGoals recomputes statuses and returns the goals that changed.
func (c *Client) RefreshGoals(ctx context.Context) ([]types.HealthGoal, error) {
	var out types.GoalRefreshResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/goals/refresh", nil, &out); err != nil {
		return nil, err
	}
	return out.Changed, nil
}
