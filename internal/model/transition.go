package model

// Transition is one recorded experience <s, a, r, s', done>.
type Transition struct {
	State     State
	ActionA   float64
	ActionB   float64
	Reward    int
	NextState State
	Done      bool
}
