package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"predictor/internal/models"
)

const (
	remoteHandshakeTimeout = 5 * time.Second
	remoteJPEGQuality      = 90
)

// RemoteDetector forwards frames to a detection server over a websocket.
// Each Detect call sends one JPEG frame and waits for the JSON list of
// detections that answers it.
type RemoteDetector struct {
	serverURL string

	mu    sync.Mutex
	conn  *websocket.Conn
	names ClassTable

	log *logrus.Logger
}

// DialRemoteDetector connects to serverURL.
func DialRemoteDetector(serverURL string, log *logrus.Logger) (*RemoteDetector, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = remoteHandshakeTimeout

	log.Println("connecting to detector server...", serverURL)
	conn, _, err := dialer.Dial(serverURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", serverURL)
	}
	log.Println("connected to detection server!")

	return &RemoteDetector{
		serverURL: serverURL,
		conn:      conn,
		names:     ClassTable{},
		log:       log,
	}, nil
}

func (d *RemoteDetector) Detect(ctx context.Context, img image.Image, threshold float32) (*models.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: remoteJPEGQuality}); err != nil {
		return nil, errors.Wrap(err, "jpeg encode")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil, errors.New("detector is closed")
	}

	if deadline, ok := ctx.Deadline(); ok {
		d.conn.SetWriteDeadline(deadline)
		d.conn.SetReadDeadline(deadline)
		defer d.conn.SetWriteDeadline(time.Time{})
		defer d.conn.SetReadDeadline(time.Time{})
	}

	if err := d.conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, "send frame")
	}

	_, message, err := d.conn.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(err, "read detections")
	}

	var wire []models.WireDetection
	if err := json.Unmarshal(message, &wire); err != nil {
		return nil, errors.Wrap(err, "decode detections")
	}

	dets := d.fromWire(wire, img.Bounds(), threshold)
	return &models.DetectionResult{
		Detections: dets,
		Annotated:  Plot(img, dets),
	}, nil
}

// fromWire converts normalized [y1, x1, y2, x2] boxes to pixel rectangles and
// drops detections below threshold. Server order is preserved.
func (d *RemoteDetector) fromWire(wire []models.WireDetection, bounds image.Rectangle, threshold float32) []models.Detection {
	w := float32(bounds.Dx())
	h := float32(bounds.Dy())

	dets := make([]models.Detection, 0, len(wire))
	for _, res := range wire {
		if res.Confidence < threshold {
			continue
		}
		if len(res.Box) != 4 {
			d.log.WithField("label", res.Label).Warn("skipping detection without box")
			continue
		}

		if res.Label != "" {
			d.names[res.ClassID] = res.Label
		}

		y1 := int(res.Box[0] * h)
		x1 := int(res.Box[1] * w)
		y2 := int(res.Box[2] * h)
		x2 := int(res.Box[3] * w)

		dets = append(dets, models.Detection{
			ClassID:    res.ClassID,
			ClassName:  d.names.Name(res.ClassID),
			Confidence: res.Confidence,
			Box:        image.Rect(x1, y1, x2, y2).Add(bounds.Min),
		})
	}
	return dets
}

func (d *RemoteDetector) Names() ClassTable {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(ClassTable, len(d.names))
	for id, n := range d.names {
		out[id] = n
	}
	return out
}

func (d *RemoteDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	d.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := d.conn.Close()
	d.conn = nil
	return errors.Wrap(err, "close detector connection")
}
