package link

import (
	"encoding/hex"
	"fmt"

	nmea "github.com/adrianmo/go-nmea"
)

// The serial bridge speaks proprietary NMEA style sentences, one per line:
//
//	$PJOYA,<addr>*CS            host -> bridge  register peer
//	$PJOYT,<addr>,<hex>*CS      host -> bridge  send payload
//	$PJOYR,<addr>,<hex>*CS      bridge -> host  payload received
//	$PJOYN,<addr>*CS            bridge -> host  last send to addr failed
//	$PJOYQ*CS                   host -> bridge  ask for the radio address
//	$PJOYM,<addr>*CS            bridge -> host  the bridge's own address
const (
	sentenceAddPeer = "PJOYA"
	sentenceSend    = "PJOYT"
	sentenceRecv    = "PJOYR"
	sentenceNak     = "PJOYN"
	sentenceQuery   = "PJOYQ"
	sentenceMine    = "PJOYM"
)

type recvSentence struct {
	nmea.BaseSentence
	From    Addr
	Payload []byte
}

type nakSentence struct {
	nmea.BaseSentence
	Peer Addr
}

type mineSentence struct {
	nmea.BaseSentence
	Addr Addr
}

var bridgeParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		// proprietary sentences are split into talker "P" and the rest
		sentenceRecv[1:]: parseRecv,
		sentenceNak[1:]:  parseNak,
		sentenceMine[1:]: parseMine,
	},
}

func parseRecv(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	addr := p.String(0, "peer address")
	data := p.String(1, "payload")
	if err := p.Err(); err != nil {
		return nil, err
	}
	from, err := ParseAddr(addr)
	if err != nil {
		return nil, err
	}
	payload, err := hex.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("bridge: bad payload %q: %w", data, err)
	}
	return recvSentence{BaseSentence: s, From: from, Payload: payload}, nil
}

func parseAddrField(s nmea.BaseSentence) (Addr, error) {
	p := nmea.NewParser(s)
	addr := p.String(0, "address")
	if err := p.Err(); err != nil {
		return Addr{}, err
	}
	return ParseAddr(addr)
}

func parseNak(s nmea.BaseSentence) (nmea.Sentence, error) {
	peer, err := parseAddrField(s)
	if err != nil {
		return nil, err
	}
	return nakSentence{BaseSentence: s, Peer: peer}, nil
}

func parseMine(s nmea.BaseSentence) (nmea.Sentence, error) {
	addr, err := parseAddrField(s)
	if err != nil {
		return nil, err
	}
	return mineSentence{BaseSentence: s, Addr: addr}, nil
}

func parseBridgeLine(line string) (nmea.Sentence, error) {
	return bridgeParser.Parse(line)
}

func sentence(fields ...string) string {
	body := fields[0]
	for _, f := range fields[1:] {
		body += "," + f
	}
	return fmt.Sprintf("$%s*%s\r\n", body, nmea.Checksum(body))
}

func addPeerSentence(addr Addr) string {
	return sentence(sentenceAddPeer, addr.String())
}

func querySentence() string {
	return sentence(sentenceQuery)
}

func sendSentence(addr Addr, payload []byte) string {
	return sentence(sentenceSend, addr.String(), hex.EncodeToString(payload))
}
