package clockify

import (
	"encoding/json"
	"time"
)

type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Archived       bool            `json:"archived"`
	Color          string          `json:"color"`
	ClientID       string          `json:"clientId"`
	BudgetEstimate json.RawMessage `json:"budgetEstimate"`
}

// Budget returns the numeric budget estimate, or nil when the API sent
// null or a non-numeric value.
func (p Project) Budget() *float64 {
	if len(p.BudgetEstimate) == 0 || string(p.BudgetEstimate) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(p.BudgetEstimate, &v); err != nil {
		return nil
	}
	return &v
}

type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}

type TimeEntryRequest struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	ProjectID   string `json:"projectId"`
	TaskID      string `json:"taskId"`
	Description string `json:"description"`
}

type TimeEntry struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	ProjectID    string `json:"projectId"`
	TaskID       string `json:"taskId"`
	TimeInterval struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"timeInterval"`
}
