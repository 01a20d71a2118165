package models

// Requests and responses for the derived-signal HTTP endpoints.

type EvaluateRequest struct {
	Formula   string   `json:"formula" validate:"required,max=1024"`
	Channels  []string `json:"channels" validate:"required,min=1,max=32,unique,dive,required,max=128"`
	StartTime int64    `json:"startTime" validate:"gte=0"`
	EndTime   int64    `json:"endTime" validate:"gtefield=StartTime"`
}

type EvaluateResponse struct {
	Data     []Point  `json:"data"`
	Formula  string   `json:"formula"`
	Channels []string `json:"channels"`
}

type CreateSignalRequest struct {
	ID             string   `json:"id" validate:"omitempty,max=128"`
	Name           string   `json:"name" validate:"required,max=256"`
	Formula        string   `json:"formula" validate:"required,max=1024"`
	Units          string   `json:"units" validate:"max=64"`
	Description    string   `json:"description" validate:"max=2048"`
	SourceChannels []string `json:"sourceChannels" validate:"required,min=1,max=32,unique,dive,required,max=128"`
}

type EvaluateSavedRequest struct {
	ID        string `param:"id" validate:"required"`
	StartTime int64  `json:"startTime" validate:"gte=0"`
	EndTime   int64  `json:"endTime" validate:"gtefield=StartTime"`
}

type SignalListResponse struct {
	Signals []DerivedSignal `json:"signals"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}
