package interfaces

//go:generate mockgen -package=mock -source=history.go -destination=mock/history.go

// History is the navigation history a session commits to
type History interface {
	Push(path string)
	Replace(path string)
	Current() string
}
