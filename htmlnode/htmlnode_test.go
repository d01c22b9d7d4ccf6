package htmlnode

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/pthm/webchat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ webchat.Element = (*Node)(nil)

const page = `<html><body><div id="before"></div><div id="slot" class="a b"><span>old</span></div><div id="after"></div></body></html>`

func text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func TestReplaceChildrenKeepsPosition(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	slot := doc.ByID("slot")
	require.NotNil(t, slot)

	require.NoError(t, slot.ReplaceChildren(context.Background(), text(`<p>new</p><p>card</p>`)))
	assert.Equal(t, "<p>new</p><p>card</p>", slot.InnerHTML())

	out := doc.String()
	before := strings.Index(out, `id="before"`)
	at := strings.Index(out, `id="slot"`)
	after := strings.Index(out, `id="after"`)
	assert.True(t, before < at && at < after, "slot moved: %s", out)
	assert.NotContains(t, out, "old")
	assert.Equal(t, "a b", slot.Attr("class"))
}

func TestReplaceChildrenRenderError(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	slot := doc.ByID("slot")

	boom := templ.ComponentFunc(func(context.Context, io.Writer) error { return io.ErrUnexpectedEOF })
	assert.ErrorIs(t, slot.ReplaceChildren(context.Background(), boom), io.ErrUnexpectedEOF)
	assert.Equal(t, "<span>old</span>", slot.InnerHTML())
}

func TestClasses(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	slot := doc.ByID("slot")

	slot.AddClass(webchat.ClassElementHidden)
	slot.AddClass(webchat.ClassElementHidden)
	assert.Equal(t, "a b "+webchat.ClassElementHidden, slot.Attr("class"))
	assert.True(t, slot.HasClass(webchat.ClassElementHidden))

	slot.RemoveClass("a")
	assert.Equal(t, "b "+webchat.ClassElementHidden, slot.Attr("class"))

	before := doc.ByID("before")
	before.AddClass("x")
	assert.Equal(t, "x", before.Attr("class"))
}

func TestByIDMissing(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	assert.Nil(t, doc.ByID("nope"))
}

func TestPortalIntoDocument(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	slot := doc.ByID("slot")

	w := webchat.NewFakeWidget("8.2.0")
	b := webchat.NewBridge(func(ev *webchat.Event, _ webchat.Instance) templ.Component {
		return text("<b>" + ev.Data.Message.(string) + "</b>")
	}, nil)
	b.Attach(w)
	w.Emit(&webchat.Event{Type: webchat.EventUserDefinedResponse, Data: webchat.EventData{Element: slot, Message: "hi"}})

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, "<b>hi</b>", slot.InnerHTML())
}
