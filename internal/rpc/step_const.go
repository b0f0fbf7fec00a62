package rpc

// Steps carried in the "step" field of ApplyProfile/ClearAll stream messages.
const (
	STEP_PROGRESS = "progress" // one adapter done, "percent" is set
	STEP_DONE     = "done"     // last message, "report" is set
)

const (
	OP_APPLY = "apply"
	OP_CLEAR = "clear"
)

// Describe to the poor user what we are doing right now.
func DescribeState(op string) string {
	switch op {
	case OP_APPLY:
		return "Applying DNS servers"
	case OP_CLEAR:
		return "Clearing DNS servers"
	default:
		return ""
	}
}
