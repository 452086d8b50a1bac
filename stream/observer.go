package stream

// Observer receives decoded stream records. Callbacks run on the
// subscriber's dispatch goroutine; slow callbacks cause older records to be
// dropped, never block the socket read loop.
type Observer interface {
	OnImage(rec *ImageRecord)
	OnIMU(batch *IMUBatch)
	OnMagneto(sample *MagnetoSample)
	OnBaro(sample *BaroSample)
	OnFailure(err error)
}

// BaseObserver is a no-op Observer for embedding, so implementations only
// override the callbacks they care about.
type BaseObserver struct{}

func (BaseObserver) OnImage(*ImageRecord)     {}
func (BaseObserver) OnIMU(*IMUBatch)          {}
func (BaseObserver) OnMagneto(*MagnetoSample) {}
func (BaseObserver) OnBaro(*BaroSample)       {}
func (BaseObserver) OnFailure(error)          {}
