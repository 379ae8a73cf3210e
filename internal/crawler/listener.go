package crawler

// Listener is notified once for every resource the crawler completes.
//
// Notify may call Get and AddListener on the crawler that notified it.
// An error return is logged and does not affect other listeners.
type Listener interface {
	Notify(res Resource) error
}

// ListenerFunc adapts a function to the Listener interface.
//
// Function values cannot be compared, so adding the same ListenerFunc
// twice registers it twice.
type ListenerFunc func(res Resource) error

// Notify implements Listener.
func (f ListenerFunc) Notify(res Resource) error {
	return f(res)
}
