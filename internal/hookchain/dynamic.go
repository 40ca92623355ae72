package hookchain

// Action tells a dynamic interceptor's registry how to proceed.
type Action int

// Dynamic interceptor actions.
const (
	// ActionContinue calls the next interceptor in the chain.
	ActionContinue Action = iota

	// ActionSupercede returns Verdict.Value without calling anything else.
	ActionSupercede

	// ActionOriginal skips the rest of the chain and calls the original.
	ActionOriginal
)

// String returns a string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionSupercede:
		return "supercede"
	case ActionOriginal:
		return "original"
	default:
		return "unknown"
	}
}

// Verdict is the answer of a dynamic interceptor.
type Verdict struct {
	Action Action
	Value  any

	// Args, when it holds a value of the site's argument type, replaces the
	// arguments passed further down the chain.
	Args any
}

// DynamicFunc is an interceptor that does not know the site's static types,
// such as a scripted plugin callback. args is the site's argument struct.
type DynamicFunc func(site string, args any) Verdict

// RegisterDynamic adapts fn to the registry's static types. A superceding
// verdict whose Value is not an R returns the zero R.
func (r *Registry[A, R]) RegisterDynamic(owner string, fn DynamicFunc, p Priority) Handle {
	return r.RegisterHookOwned(owner, func(chain *Hook[A, R], args A) R {
		v := fn(r.name, args)
		if a, ok := v.Args.(A); ok {
			args = a
		}
		switch v.Action {
		case ActionSupercede:
			if ret, ok := v.Value.(R); ok {
				return ret
			}
			var zero R
			return zero
		case ActionOriginal:
			return chain.CallOriginal(args)
		default:
			return chain.CallNext(args)
		}
	}, p)
}
