package source

// ContextStack holds the active source scopes, outermost file first,
// innermost include or macro expansion last.
//
// The stack must never be empty while processing is in progress. Popping or
// peeking an empty stack means a push/pop imbalance in the executor, which
// is a programming error: both operations panic with EmptyContextStack
// rather than return an error, so the defect cannot be swallowed or
// downgraded to a user-facing warning.
type ContextStack struct {
	stack []*Context
}

// EmptyContextStack is the panic value raised by Pop or Current on an empty
// stack.
type EmptyContextStack struct {
	Op string
}

func (e EmptyContextStack) Error() string {
	return "internal error: " + e.Op + " of empty context stack"
}

func (s *ContextStack) Push(c *Context) {
	s.stack = append(s.stack, c)
}

func (s *ContextStack) Pop() *Context {
	if len(s.stack) == 0 {
		panic(EmptyContextStack{Op: "pop"})
	}
	c := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return c
}

// Current returns the innermost active scope without removing it.
func (s *ContextStack) Current() *Context {
	if len(s.stack) == 0 {
		panic(EmptyContextStack{Op: "peek"})
	}
	return s.stack[len(s.stack)-1]
}

func (s *ContextStack) Len() int {
	return len(s.stack)
}
