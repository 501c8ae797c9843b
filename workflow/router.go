package workflow

// next computes the state that follows from once its handler's update has
// been applied. It has no side effects.
func next(from State, s *WorkflowState) State {
	switch from {
	case StatePlan:
		if s.Fatal != nil || s.Plan == nil {
			return StateTerminal
		}
		return StateGenerate

	case StateGenerate:
		if s.Code == "" {
			return StateTerminal
		}
		return StateExecute

	case StateExecute:
		switch {
		case s.Result == nil:
			return StateTerminal
		case s.Result.Success:
			return StateValidate
		case s.RetryCount >= MaxRetries, s.Result.Error == "":
			return StateTerminal
		}
		return StateHeal

	case StateHeal:
		if s.RetryCount >= MaxRetries {
			return StateTerminal
		}
		return StateExecute
	}
	return StateTerminal
}
