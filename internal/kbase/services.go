package kbase

// Endpoints locates each platform service.
type Endpoints struct {
	Auth      string
	Workspace string
	Groups    string
	NMS       string
	NMSImages string
}

// Services bundles the clients the dashboard needs.
type Services struct {
	Auth        *Auth
	Workspace   *Workspace
	Groups      *Groups
	MethodStore *MethodStore
}

// New wires every service client to one shared Client.
func New(ep Endpoints, opts Options) *Services {
	c := NewClient(opts)
	auth := NewAuth(c, ep.Auth)
	return &Services{
		Auth:        auth,
		Workspace:   NewWorkspace(c, ep.Workspace, auth),
		Groups:      NewGroups(c, ep.Groups),
		MethodStore: NewMethodStore(c, ep.NMS, ep.NMSImages),
	}
}
