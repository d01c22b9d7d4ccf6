package browser

import "github.com/pthm/webchat"

// NewRegistry returns a registry that injects the widget script into the
// page and reads the entry point the script installs on window. nonce is
// copied onto the injected tag when set.
func NewRegistry(nonce string, opts ...webchat.RegistryOption) *webchat.Registry {
	opts = append([]webchat.RegistryOption{webchat.WithEntryPointLookup(GlobalEntryPoint)}, opts...)
	return webchat.NewRegistry(ScriptTagLoader{Nonce: nonce}, opts...)
}
