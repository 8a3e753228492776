package domain

// Stage is the lifecycle position of one worker artifact within a run.
type Stage string

const (
	StagePending    Stage = "pending"
	StageFetched    Stage = "fetched"
	StageRendered   Stage = "rendered"
	StageRasterized Stage = "rasterized"
	StageUploaded   Stage = "uploaded"
	StageSkipped    Stage = "skipped"
)

// StageEvent moves an artifact from one stage to the next.
type StageEvent string

const (
	EventFetch     StageEvent = "fetch"
	EventRender    StageEvent = "render"
	EventRasterize StageEvent = "rasterize"
	EventUpload    StageEvent = "upload"
	EventSkip      StageEvent = "skip"
)

// Terminal reports whether no further events are accepted from s.
func (s Stage) Terminal() bool {
	return s == StageUploaded || s == StageSkipped
}

// StageTransition defines a valid change: Event moves an artifact from Src to Dst.
type StageTransition struct {
	Event StageEvent
	Src   Stage
	Dst   Stage
}

// StageTransitions lists every allowed artifact stage change. Skipping is
// possible from every non-terminal stage.
var StageTransitions = []StageTransition{
	{Event: EventFetch, Src: StagePending, Dst: StageFetched},
	{Event: EventRender, Src: StageFetched, Dst: StageRendered},
	{Event: EventRasterize, Src: StageRendered, Dst: StageRasterized},
	{Event: EventUpload, Src: StageRasterized, Dst: StageUploaded},
	{Event: EventSkip, Src: StagePending, Dst: StageSkipped},
	{Event: EventSkip, Src: StageFetched, Dst: StageSkipped},
	{Event: EventSkip, Src: StageRendered, Dst: StageSkipped},
	{Event: EventSkip, Src: StageRasterized, Dst: StageSkipped},
}
