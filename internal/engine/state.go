package engine

// State is the progress of one chat turn.
type State struct {
	History   *History // Conversation the turn reads and extends
	Model     string   // LLM model name
	Round     int      // Tool rounds completed so far
	Done      bool     // True when the model replied without tool calls
	Reply     string   // Text of the latest assistant message
	Totals    Usage    // Accumulated token usage across all calls
	ToolCalls int      // Total tool calls this turn
}

func (s *State) Append(msg ChatMessage) { s.History.Append(msg) }
