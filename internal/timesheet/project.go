package timesheet

const StatusActive = "active"

type Activity struct {
	ID   string
	Name string
}

// Project is a remote project together with its activities. Aliases maps
// extra alias names to activity ids.
type Project struct {
	ID          string
	Name        string
	Status      string
	Description string
	Budget      *float64
	Activities  []Activity
	Aliases     map[string]string
}

func NewProject(id, name, status, description string, budget *float64) *Project {
	return &Project{
		ID:          id,
		Name:        name,
		Status:      status,
		Description: description,
		Budget:      budget,
		Aliases:     make(map[string]string),
	}
}

func (p *Project) AddActivity(a Activity) {
	p.Activities = append(p.Activities, a)
}

func (p *Project) Activity(id string) (Activity, bool) {
	for _, a := range p.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}

func (p *Project) IsActive() bool {
	return p.Status == StatusActive
}
