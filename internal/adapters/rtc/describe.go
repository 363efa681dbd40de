package rtc

import (
	"encoding/json"
	"strings"

	"github.com/pion/webrtc/v4"
)

// SDPSummary is what the relay logs about an offer or answer. Payloads are
// forwarded untouched whatever this reports.
type SDPSummary struct {
	Type  string
	Media []string
	MIDs  []string
}

// DescribeSDP reads a {type, sdp} payload. ok is false when the payload is
// not a session description at all; an SDP body that fails to parse still
// reports its type.
func DescribeSDP(payload json.RawMessage) (SDPSummary, bool) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(payload, &desc); err != nil || desc.SDP == "" {
		return SDPSummary{}, false
	}
	sum := SDPSummary{Type: desc.Type.String()}
	parsed, err := desc.Unmarshal()
	if err != nil {
		return sum, true
	}
	for _, md := range parsed.MediaDescriptions {
		sum.Media = append(sum.Media, md.MediaName.Media)
		if mid, ok := md.Attribute("mid"); ok {
			sum.MIDs = append(sum.MIDs, mid)
		}
	}
	return sum, true
}

type CandidateSummary struct {
	Kind   string
	SDPMid string
}

// DescribeCandidate reads an RTCIceCandidateInit payload. An empty candidate
// string is the end-of-candidates marker and reports Kind "end".
func DescribeCandidate(payload json.RawMessage) (CandidateSummary, bool) {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &init); err != nil {
		return CandidateSummary{}, false
	}
	var sum CandidateSummary
	if init.SDPMid != nil {
		sum.SDPMid = *init.SDPMid
	}
	if init.Candidate == "" {
		sum.Kind = "end"
		return sum, true
	}
	fields := strings.Fields(init.Candidate)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "typ" {
			sum.Kind = fields[i+1]
			break
		}
	}
	return sum, true
}
