package main

type Mode int

const (
	ModeNormal Mode = iota
	ModeDrawing
	ModeMove
	ModeVertex
	ModeColorInput
	ModeFileInput
	ModeConfirm
)

type FileOperation int

const (
	FileOpSavePNG FileOperation = iota
	FileOpSaveGeoJSON
	FileOpSaveVisualTXT
)

type ConfirmAction int

const (
	ConfirmDeletePolygon ConfirmAction = iota
	ConfirmQuit
	ConfirmOverwriteFile
)

const zoomStep = 0.5
