package service

// Form holds the raw submission input as typed by the user.
type Form struct {
	Score    string
	GameName string
}

// Empty reports whether both fields are blank.
func (f Form) Empty() bool { return f.Score == "" && f.GameName == "" }
