package task

// Options is the declared configuration surface for built-in templates.
// Each task reads only the fields meaningful for it; setting an option a
// task does not use is ignored rather than an error.
type Options struct {
	// IncludeExamples appends few-shot examples to the assistant (and
	// creative) system instructions.
	IncludeExamples bool
}

// Info is one catalogue entry: a task name with its description.
type Info struct {
	Name        string
	Description string
}

// Registry exposes the fixed task catalogue. The zero value is not usable;
// construct with NewRegistry. A Registry is stateless and safe for
// concurrent use.
type Registry struct{}

// NewRegistry returns the task catalogue.
func NewRegistry() *Registry { return &Registry{} }

// List returns all supported tasks and descriptions in stable order.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(kindOrder))
	for _, k := range kindOrder {
		infos = append(infos, Info{Name: k.String(), Description: k.Description()})
	}
	return infos
}

// RequiredInputs returns the required input field names for a task. Unknown
// task names degrade gracefully to {"message"} instead of erroring; UI
// prompting relies on always getting a usable field list back.
func (r *Registry) RequiredInputs(taskName string) []string {
	k, err := ParseKind(taskName)
	if err != nil {
		return []string{"message"}
	}
	return k.RequiredInputs()
}

// Template resolves a task case-insensitively and returns its rendered-prompt
// factory. Unknown tasks fail with core.UnsupportedTaskError carrying the
// valid task names.
func (r *Registry) Template(taskName string, opts Options) (*Template, error) {
	k, err := ParseKind(taskName)
	if err != nil {
		return nil, err
	}
	return buildTemplate(k, opts), nil
}
