package encoder

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/screenreel/internal/config"
	"github.com/bryanchriswhite/screenreel/internal/logger"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// gstEncoder encodes frames through an in-process GStreamer pipeline:
// appsrc -> videoconvert -> x264enc -> mp4mux -> filesink.
type gstEncoder struct {
	cfg      config.Recording
	pipeline *gst.Pipeline
	src      *app.Source
}

func openGStreamer(cfg config.Recording) (Encoder, error) {
	gst.Init(nil)

	log := logger.WithComponent("gstreamer")

	// x264enc takes kbit/s.
	pipelineStr := fmt.Sprintf(
		"appsrc name=src is-live=true format=time do-timestamp=true "+
			"caps=video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/1 ! "+
			"videoconvert ! "+
			"x264enc bitrate=%d speed-preset=veryfast ! "+
			"mp4mux ! "+
			"filesink location=%s",
		cfg.Width, cfg.Height, cfg.FrameRate,
		cfg.Bitrate/1000,
		cfg.OutputPath,
	)

	log.Debug().Str("pipeline", pipelineStr).Msg("Creating GStreamer pipeline")

	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	srcElement, err := pipeline.GetElementByName("src")
	if err != nil {
		pipeline.Unref()
		return nil, fmt.Errorf("failed to get appsrc: %w", err)
	}

	e := &gstEncoder{
		cfg:      cfg,
		pipeline: pipeline,
		src:      app.SrcFromElement(srcElement),
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.Unref()
		return nil, fmt.Errorf("failed to start pipeline: %w", err)
	}

	log.Info().
		Str("path", cfg.OutputPath).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("GStreamer encoder opened")

	return e, nil
}

func (e *gstEncoder) Submit(frame *image.RGBA) error {
	bounds := frame.Bounds()
	if bounds.Dx() != e.cfg.Width || bounds.Dy() != e.cfg.Height {
		return &SubmitError{Err: fmt.Errorf("frame is %dx%d, encoder expects %dx%d",
			bounds.Dx(), bounds.Dy(), e.cfg.Width, e.cfg.Height)}
	}

	rowBytes := e.cfg.Width * 4
	pix := frame.Pix
	if frame.Stride != rowBytes {
		// Repack padded rows; appsrc caps describe tightly packed RGBA.
		pix = make([]byte, rowBytes*e.cfg.Height)
		for y := 0; y < e.cfg.Height; y++ {
			copy(pix[y*rowBytes:(y+1)*rowBytes], frame.Pix[y*frame.Stride:y*frame.Stride+rowBytes])
		}
	}

	buf := gst.NewBufferFromBytes(pix)
	if ret := e.src.PushBuffer(buf); ret != gst.FlowOK {
		return &SubmitError{Err: fmt.Errorf("appsrc rejected buffer: %s", ret)}
	}
	return nil
}

func (e *gstEncoder) Finalize() error {
	e.src.EndStream()

	// Drain the bus until the muxer reports EOS so the MP4 index is written
	// before the pipeline is torn down.
	var pipelineErr error
	bus := e.pipeline.GetPipelineBus()
	for {
		msg := bus.BlockPopMessage()
		if msg == nil {
			break
		}
		if msg.Type() == gst.MessageEOS {
			break
		}
		if msg.Type() == gst.MessageError {
			pipelineErr = fmt.Errorf("gstreamer pipeline error: %s", msg.String())
			break
		}
	}

	e.pipeline.SetState(gst.StateNull)
	e.pipeline.Unref()

	if pipelineErr != nil {
		return pipelineErr
	}

	logger.WithComponent("gstreamer").Info().
		Str("path", e.cfg.OutputPath).
		Msg("Container finalized")
	return nil
}
