package context

// Environment is the interface to the process environment.
type Environment interface {
	// All returns every variable of the environment.
	All() map[string]string
}
