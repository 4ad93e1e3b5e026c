package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barcodeworks/scanctl/internal/serialio"
	"github.com/barcodeworks/scanctl/pkg/protocol"
)

// gm65Reply assembles a valid GM65-style response frame around data.
func gm65Reply(data []byte) []byte {
	body := append([]byte{0x00, 0x00, byte(len(data))}, data...)
	crc := protocol.CRC16XModem(body)
	frame := append([]byte{0x02}, body...)
	return append(frame, byte(crc>>8), byte(crc))
}

// m3yReply assembles a valid M3Y-style response frame around data. The
// reply BCC covers the 0x01 marker, the length field and the data.
func m3yReply(data []byte) []byte {
	body := []byte{0x01, byte(len(data) >> 8), byte(len(data))}
	body = append(body, data...)
	frame := append([]byte{0x5A}, body...)
	frame = append(frame, protocol.BCC(body))
	return append(frame, 0xA5)
}

func testSession(port serialio.Port, p *protocol.Profile) *Session {
	s := NewSession(port, p)
	s.Timeout = 20 * time.Millisecond
	return s
}

func TestDoMatched(t *testing.T) {
	port := serialio.NewMockPort(gm65Reply([]byte{0x57}))
	sess := testSession(port, protocol.GM65)

	dec, err := sess.Do(context.Background(), protocol.Command{Op: protocol.OpGetSwVersion})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x57}, dec.Data)
	assert.Equal(t, StateMatched, sess.State())
	require.Len(t, port.Writes, 1)

	op, ok := protocol.CommandOp(protocol.GM65, port.Writes[0])
	require.True(t, ok)
	assert.Equal(t, protocol.OpGetSwVersion, op)
}

func TestDoMatchedAcrossChunks(t *testing.T) {
	reply := gm65Reply([]byte{0x01, 0x02, 0x03})
	port := serialio.NewMockPort(reply[:3], reply[3:])
	sess := testSession(port, protocol.GM65)

	dec, err := sess.Do(context.Background(), protocol.Command{Op: protocol.OpGetSettings})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, dec.Data)
}

func TestDoNoResponseRetriesOnce(t *testing.T) {
	port := serialio.NewMockPort() // silent line
	sess := testSession(port, protocol.GM65)

	_, err := sess.Do(context.Background(), protocol.Command{Op: protocol.OpGetSwVersion})
	require.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, StateTimedOut, sess.State())
	// Exactly one resend: two writes total, not one, not more.
	assert.Len(t, port.Writes, 2)
}

func TestDoRecoversFromStrayScanPayload(t *testing.T) {
	// A scan payload arrives on the shared channel before the command
	// reply: it is discarded and the read re-armed.
	port := serialio.NewMockPort([]byte("HELLO-WORLD\r\n"), gm65Reply([]byte{0x45}))
	sess := testSession(port, protocol.GM65)

	dec, err := sess.Do(context.Background(), protocol.Command{Op: protocol.OpGetSwVersion})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45}, dec.Data)
	assert.Len(t, port.Writes, 1)
}

func TestDoRecoversFromStrayAndReplyInOneChunk(t *testing.T) {
	// The scan payload and the reply land in a single read. The stray
	// prefix is trimmed; the reply behind it must still match without a
	// resend.
	chunk := append([]byte("HELLO-WORLD\r\n"), gm65Reply([]byte{0x45})...)
	port := serialio.NewMockPort(chunk)
	sess := testSession(port, protocol.GM65)

	dec, err := sess.Do(context.Background(), protocol.Command{Op: protocol.OpGetSwVersion})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45}, dec.Data)
	assert.Len(t, port.Writes, 1)
}

func TestDoUnexpectedReplyAfterOneRearm(t *testing.T) {
	port := serialio.NewMockPort([]byte("JUNK1\r\n"), []byte("JUNK2\r\n"))
	sess := testSession(port, protocol.GM65)

	_, err := sess.Do(context.Background(), protocol.Command{Op: protocol.OpGetSwVersion})
	require.ErrorIs(t, err, ErrUnexpectedReply)
	assert.Equal(t, StateMismatched, sess.State())
	// Mismatches are not resent; that policy is for timeouts only.
	assert.Len(t, port.Writes, 1)
}

func TestDoUnsupportedBeforeWire(t *testing.T) {
	port := serialio.NewMockPort()
	sess := testSession(port, protocol.M3Y)

	_, err := sess.Do(context.Background(), protocol.Command{Op: protocol.OpGetSettings})
	require.ErrorIs(t, err, protocol.ErrUnsupportedCommand)
	assert.Empty(t, port.Writes, "unsupported ops must not touch the wire")
}

func TestSetIlluminationUnsupportedOnM3Y(t *testing.T) {
	port := serialio.NewMockPort()
	sess := testSession(port, protocol.M3Y)

	err := sess.SetIllumination(context.Background(), ModeOn)
	require.ErrorIs(t, err, protocol.ErrUnsupportedCommand)
	assert.Empty(t, port.Writes)
}

func TestDoM3Y(t *testing.T) {
	port := serialio.NewMockPort(m3yReply([]byte("V2.1.0")))
	sess := testSession(port, protocol.M3Y)

	dec, err := sess.Do(context.Background(), protocol.Command{Op: protocol.OpGetSwVersion})
	require.NoError(t, err)
	assert.Equal(t, "V2.1.0", string(dec.Data))
}

func TestRawCommand(t *testing.T) {
	port := serialio.NewMockPort([]byte{0x02, 0x00, 0x99}) // deliberately not a valid frame
	sess := testSession(port, protocol.GM65)

	frame := []byte{0x7E, 0x00, 0x07, 0x01, 0x00, 0xE2, 0x01, 0xAB, 0xCD}
	reply, err := sess.Raw(context.Background(), frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00, 0x99}, reply)
	require.Len(t, port.Writes, 1)
	assert.Equal(t, frame, port.Writes[0], "raw bytes must go out unmodified")
}

func TestRawCommandSilence(t *testing.T) {
	port := serialio.NewMockPort()
	sess := testSession(port, protocol.GM65)

	_, err := sess.Raw(context.Background(), []byte{0x7E, 0x00})
	require.ErrorIs(t, err, ErrNoResponse)
	assert.Len(t, port.Writes, 1, "raw commands are not retried")
}

func TestSetBaudrateVerified(t *testing.T) {
	port := serialio.NewMockPort(
		gm65Reply(nil),          // write ack for the baud zones
		gm65Reply([]byte{0x01}), // GetHwVersion at the new rate
	)
	sess := testSession(port, protocol.GM65)

	require.NoError(t, sess.SetBaudrate(context.Background(), 19200))
	assert.Equal(t, []int{19200}, port.Bauds)

	// Second write carries the divisor 14400000/19200 = 750 little-endian.
	require.Len(t, port.Writes, 2)
	op, ok := protocol.CommandOp(protocol.GM65, port.Writes[0])
	require.True(t, ok)
	assert.Equal(t, protocol.OpSetBaudrate, op)
	assert.Equal(t, []byte{0xEE, 0x02}, port.Writes[0][6:8])
}

func TestSetBaudrateUnverified(t *testing.T) {
	// Ack arrives, then the device goes silent at the new rate.
	port := serialio.NewMockPort(gm65Reply(nil))
	sess := testSession(port, protocol.GM65)

	err := sess.SetBaudrate(context.Background(), 19200)
	require.ErrorIs(t, err, ErrBaudrateUnverified)
	// Not rolled back: the transport stays at the new rate.
	assert.Equal(t, []int{19200}, port.Bauds)
}

func TestSetBaudrateUnsupportedRate(t *testing.T) {
	port := serialio.NewMockPort()
	sess := testSession(port, protocol.GM65)

	err := sess.SetBaudrate(context.Background(), 12345)
	require.Error(t, err)
	assert.Empty(t, port.Writes)
	assert.Empty(t, port.Bauds)
}

func TestDoContextCancelled(t *testing.T) {
	port := serialio.NewMockPort()
	sess := testSession(port, protocol.GM65)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sess.Do(ctx, protocol.Command{Op: protocol.OpGetSwVersion})
	require.ErrorIs(t, err, context.Canceled)
}
