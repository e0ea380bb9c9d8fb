package v1

type CareloopClient struct {
	Transport *Transport
	Visits    *VisitEndpoint
}

// NewCareloopClient initializes the API client
func NewCareloopClient(baseURL string, token string) *CareloopClient {
	t := NewTransport(baseURL, token)
	return &CareloopClient{
		Transport: t,
		Visits:    &VisitEndpoint{transport: t},
	}
}
