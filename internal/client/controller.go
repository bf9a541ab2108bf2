// Package client submits shipment workbooks to the billing server and
// delivers the priced workbook it returns.
//
// A Controller wires three collaborators: a Transport that performs the
// upload, a Sink that receives the returned artifact, and a Display that
// shows progress. Each Submit is independent; concurrent calls are not
// serialized and the display shows whichever status was written last.
package client

import (
	"context"
	"fmt"
)

// File is a named binary blob chosen by the user.
type File struct {
	Name string
	Data []byte
}

// Selection is the input of one Submit call. File is nil when nothing was chosen.
type Selection struct {
	File    *File
	Courier string
}

// Artifact is a priced workbook ready to hand to the user.
type Artifact struct {
	Courier string
	Name    string
	Data    []byte
}

// Transport uploads a file for a courier and returns the response body.
type Transport interface {
	Upload(ctx context.Context, courier string, file File) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, courier string, file File) ([]byte, error)

func (f TransportFunc) Upload(ctx context.Context, courier string, file File) ([]byte, error) {
	return f(ctx, courier, file)
}

// Sink exposes an artifact to the user.
type Sink interface {
	Deliver(ctx context.Context, a Artifact) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, a Artifact) error

func (f SinkFunc) Deliver(ctx context.Context, a Artifact) error {
	return f(ctx, a)
}

// ArtifactName is the suggested file name of the output for courier.
func ArtifactName(courier string) string {
	return fmt.Sprintf("%s_billing_output.xlsx", courier)
}

// Controller runs the upload-and-download action.
type Controller struct {
	Transport Transport
	Sink      Sink
	Display   Display
}

// Submit validates sel, uploads it, and delivers the result. The outcome is
// always reported through the Display; the same error is also returned.
func (c *Controller) Submit(ctx context.Context, sel Selection) error {
	if sel.File == nil {
		err := &ValidationError{Msg: msgNoFile}
		c.fail(err)
		return err
	}

	c.Display.SetStatus(Status{Text: msgProcessing, Kind: StatusNeutral})

	data, err := c.Transport.Upload(ctx, sel.Courier, *sel.File)
	if err != nil {
		c.fail(err)
		return err
	}

	artifact := Artifact{
		Courier: sel.Courier,
		Name:    ArtifactName(sel.Courier),
		Data:    data,
	}
	if err := c.Sink.Deliver(ctx, artifact); err != nil {
		c.fail(err)
		return err
	}

	c.Display.SetStatus(Status{Text: msgSuccess, Kind: StatusSuccess})
	return nil
}

func (c *Controller) fail(err error) {
	c.Display.SetStatus(Status{Text: err.Error(), Kind: StatusError})
}
