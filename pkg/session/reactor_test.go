package session

import (
	"testing"
	"time"

	"github.com/mkrueger/icy-term-go/pkg/transfer"
)

func TestBaudPacerThrottlesAtConfiguredRate(t *testing.T) {
	p := newBaudPacer(300) // 30 bytes/sec
	start := time.Now()
	p.Wait(30) // first call drains the full initial bucket instantly
	p.Wait(30) // second call must wait roughly 1 second for refill
	elapsed := time.Since(start)
	if elapsed < 900*time.Millisecond {
		t.Fatalf("pacer did not throttle: elapsed %v", elapsed)
	}
}

func TestBaudPacerZeroRateNeverBlocks(t *testing.T) {
	p := newBaudPacer(0)
	start := time.Now()
	p.Wait(1_000_000)
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("zero baud rate should disable pacing")
	}
}

func TestBaudPacerPauseResumeSkipsWait(t *testing.T) {
	p := newBaudPacer(300)
	p.Pause()
	start := time.Now()
	p.Wait(1_000_000)
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("paused pacer should not block")
	}
	p.Resume()
}

func TestCRC16ARCKnownVector(t *testing.T) {
	// "123456789" is the standard CRC check string; CRC-16/ARC's
	// documented check value for it is 0xBB3D.
	got := crc16ARC([]byte("123456789"))
	if got != 0xBB3D {
		t.Fatalf("crc16ARC(\"123456789\") = %04X, want BB3D", got)
	}
}

func TestIEMSIFrameKindRoundTrip(t *testing.T) {
	frame := buildEMSIIRQ()
	kind, _, ok := iemsiFrameKind(frame)
	if !ok || kind != "IRQ" {
		t.Fatalf("iemsiFrameKind = %q, %v, want IRQ, true", kind, ok)
	}
}

func TestIEMSIHandshakeRespondsToISQWithICI(t *testing.T) {
	h := newIEMSIHandshake(AddressBookEntry{Username: "sysop", Password: "hunter2", TerminalType: "ansi", Width: 80, Height: 25})
	probe := h.Start()
	if len(probe) == 0 {
		t.Fatal("Start() returned no probe frame")
	}
	reply := h.Feed(buildEMSIFrame("ISQ", nil))
	if reply == nil {
		t.Fatal("expected an ICI reply to an ISQ frame")
	}
	kind, _, ok := iemsiFrameKind(reply)
	if !ok || kind != "ICI" {
		t.Fatalf("reply kind = %q, want ICI", kind)
	}
	h.Feed(buildEMSIFrame("ACK", nil))
	if !h.Done() {
		t.Fatal("handshake should be Done after ACK")
	}
}

func TestIEMSIHandshakeRetriesOnNAK(t *testing.T) {
	h := newIEMSIHandshake(AddressBookEntry{})
	h.Start()
	h.Feed(buildEMSIFrame("ISQ", nil))
	reply := h.Feed(buildEMSIFrame("NAK", nil))
	if reply == nil {
		t.Fatal("expected a retry probe after NAK")
	}
	if h.Failed() {
		t.Fatal("should not fail before exhausting attempts")
	}
}

func TestAutoDownloadSnifferDetectsZmodem(t *testing.T) {
	var s autoDownloadSniffer
	chunk := append([]byte("Starting download, press any key...\r\n"), zmodemStartMarker...)
	proto, ok := s.Feed(chunk)
	if !ok || proto != transfer.ProtocolZmodem {
		t.Fatalf("sniffer missed zmodem start marker: proto=%q ok=%v", proto, ok)
	}
}

func TestAutoDownloadSnifferIgnoresPlainText(t *testing.T) {
	var s autoDownloadSniffer
	_, ok := s.Feed([]byte("just some ordinary ansi menu text\r\n"))
	if ok {
		t.Fatal("sniffer false-positived on plain text")
	}
}

func TestAutoDownloadSnifferCatchesMarkerSplitAcrossReads(t *testing.T) {
	var s autoDownloadSniffer
	half := len(zmodemStartMarker) / 2
	s.Feed(zmodemStartMarker[:half])
	proto, ok := s.Feed(zmodemStartMarker[half:])
	if !ok || proto != transfer.ProtocolZmodem {
		t.Fatal("sniffer failed to catch a marker split across two Feed calls")
	}
}
