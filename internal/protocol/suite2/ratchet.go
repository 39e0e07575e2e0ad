package suite2

import (
	"encoding/binary"

	"qshield/internal/crypto"
	"qshield/internal/reject"
)

// Suite bundles the crypto capabilities the ratchet consumes. The engine
// performs no IO and never logs; everything it touches arrives through these
// interfaces.
type Suite struct {
	Hash crypto.Hash
	KMAC crypto.Kmac
	AEAD crypto.AEAD
	DH   crypto.X25519DH
	KEM  crypto.PqKem768
}

// New builds a Suite from its collaborators.
func New(hash crypto.Hash, kmac crypto.Kmac, aead crypto.AEAD, dh crypto.X25519DH, kem crypto.PqKem768) *Suite {
	return &Suite{Hash: hash, KMAC: kmac, AEAD: aead, DH: dh, KEM: kem}
}

// Suite-2 AEAD nonces are fixed: the wire carries no nonce field and every
// message/header key is single-use.
var zeroNonce [12]byte

// BoundaryOpts selects what a boundary send attaches. AttachCiphertext
// implies Advertise: a ciphertext event must ride a fresh advertisement so
// the receiver's monotonicity check has something to bite on.
type BoundaryOpts struct {
	// Advertise attaches a fresh ML-KEM-768 advertisement.
	Advertise bool
	// AttachCiphertext encapsulates against one of the peer's known
	// advertisements and attaches the ciphertext.
	AttachCiphertext bool
	// TargetAdvID picks the peer advertisement to target; zero selects the
	// newest one.
	TargetAdvID uint32
}

// chain step derivations. Each is a single KMAC-256 call whose 64-byte
// output splits into (output key, next chain key).

func (s *Suite) stepHK(hk [32]byte) (mkHdr, next [32]byte) {
	out := s.KMAC.KMAC256(hk[:], labelHKStep, []byte{0x01}, 64)
	copy(mkHdr[:], out[:32])
	copy(next[:], out[32:])
	return mkHdr, next
}

func (s *Suite) stepCK(ck [32]byte) (mk, next [32]byte) {
	out := s.KMAC.KMAC256(ck[:], labelCKStep, []byte{0x01}, 64)
	copy(mk[:], out[:32])
	copy(next[:], out[32:])
	return mk, next
}

func (s *Suite) stepPQ(ck [32]byte) (mk, next [32]byte) {
	out := s.KMAC.KMAC256(ck[:], labelPQStep, []byte{0x01}, 64)
	copy(mk[:], out[:32])
	copy(next[:], out[32:])
	return mk, next
}

func (s *Suite) hybridMK(mkEC, mkPQ [32]byte) [32]byte {
	return kmac32(s.KMAC, mkEC[:], labelMKHybrid, mkPQ[:])
}

func (s *Suite) rootStep(rk [32]byte, dhOut [32]byte) [32]byte {
	return kmac32(s.KMAC, rk[:], labelRKDH, dhOut[:])
}

// sendDirLabels returns the derivation labels for this party's sending
// direction; peerDirLabels for the peer's.
func sendDirLabels(roleIsA bool) (hk, ck, pq string) {
	if roleIsA {
		return labelHKA2B, labelCK0A2B, labelPQ0A2B
	}
	return labelHKB2A, labelCK0B2A, labelPQ0B2A
}

func peerDirLabels(roleIsA bool) (hk, ck, pq string) {
	return sendDirLabels(!roleIsA)
}

// Send seals plaintext on the current sending chain. If the send chain is
// not yet established (first send as responder, or the first reply after the
// peer ratcheted) the send upgrades itself to a plain boundary.
func (s *Suite) Send(st *SessionState, plaintext []byte) ([]byte, error) {
	return s.send(st, plaintext, BoundaryOpts{}, st.Send.CKec == zero32)
}

// SendBoundary performs a DH ratchet step and seals plaintext on the fresh
// chain, optionally attaching PQ advertisement and/or ciphertext per opts.
func (s *Suite) SendBoundary(st *SessionState, plaintext []byte, opts BoundaryOpts) ([]byte, error) {
	return s.send(st, plaintext, opts, true)
}

func (s *Suite) send(st *SessionState, plaintext []byte, opts BoundaryOpts, boundary bool) ([]byte, error) {
	work := st.Clone()
	var flags uint16
	var pqPrefix []byte
	var msg Message

	if opts.AttachCiphertext {
		opts.Advertise = true
	}
	if (opts.Advertise || opts.AttachCiphertext) && !boundary {
		return nil, reject.FromRatchet("pq attachments require a boundary send")
	}

	if boundary {
		newPriv, newPub, err := s.DH.Keypair()
		if err != nil {
			return nil, reject.Newf(reject.Internal, "dh keypair: %v", err)
		}
		dhOut, err := s.DH.DH(newPriv, crypto.X25519Public(work.Recv.DHPub))
		if err != nil {
			return nil, reject.Newf(reject.Internal, "dh: %v", err)
		}
		rkNew := s.rootStep(work.Recv.RK, dhOut)
		hkLabel, ckLabel, pqLabel := sendDirLabels(work.Recv.RoleIsA)
		work.Recv.RK = rkNew
		work.Send.HKs = kmac32(s.KMAC, rkNew[:], hkLabel, []byte{0x01})
		work.Send.CKec = kmac32(s.KMAC, rkNew[:], ckLabel, []byte{0x01})
		if work.Send.CKpq == zero32 {
			work.Send.CKpq = kmac32(s.KMAC, rkNew[:], pqLabel, []byte{0x01})
			work.Recv.CKpqSend = work.Send.CKpq
		}
		work.Send.PN = work.Send.Ns
		work.Send.Ns = 0
		work.Send.DHPriv.Wipe()
		work.Send.DHPriv = newPriv
		work.Send.DHPub = [32]byte(newPub)
		flags |= FlagBoundary
	}

	if opts.Advertise {
		advID := work.NextAdvID
		kemPub, kemPriv, err := s.KEM.KemKeypair()
		if err != nil {
			return nil, reject.Newf(reject.Internal, "kem keypair: %v", err)
		}
		if len(kemPub) != PQAdvPubLen {
			return nil, reject.Newf(reject.Internal, "kem public key length %d", len(kemPub))
		}
		work.NextAdvID++
		if work.Recv.TargetPrivs == nil {
			work.Recv.TargetPrivs = make(map[uint32][]byte)
		}
		work.Recv.TargetPrivs[advID] = kemPriv
		work.Recv.KnownTargets = setInsert(work.Recv.KnownTargets, advID)
		pqPrefix = append(pqPrefix, AdvPrefix(advID, kemPub)...)
		flags |= FlagPQAdv
		msg.HasAdv = true
		msg.PQAdvID = advID
		msg.PQAdvPub = kemPub
	}

	if opts.AttachCiphertext {
		targetID := opts.TargetAdvID
		if targetID == 0 {
			for id := range work.PeerAdvPubs {
				if id > targetID {
					targetID = id
				}
			}
		}
		peerPub, ok := work.PeerAdvPubs[targetID]
		if !ok {
			return nil, reject.FromRatchet("no peer advertisement to target")
		}
		ct, ss, err := s.KEM.Encap(peerPub)
		if err != nil {
			return nil, reject.Newf(reject.Internal, "kem encapsulate: %v", err)
		}
		if len(ct) != PQCtLen {
			return nil, reject.Newf(reject.Internal, "kem ciphertext length %d", len(ct))
		}
		seedA2B, seedB2A := DeriveReseed(s.Hash, s.KMAC, &work.Recv.RK, targetID, ct, ss)
		sendSeed, recvSeed := sendRecvSeeds(work.Recv.RoleIsA, seedA2B, seedB2A)
		work.Send.CKpq = sendSeed
		work.Recv.CKpqSend = sendSeed
		work.Recv.CKpqRecv = recvSeed
		delete(work.PeerAdvPubs, targetID)
		pqPrefix = append(pqPrefix, CtxtPrefix(targetID, ct)...)
		flags |= FlagPQCtxt
		msg.HasCtxt = true
		msg.PQTargetID = targetID
		msg.PQCt = ct
	}

	pqBind := PQBind(s.Hash, flags, pqPrefix)

	mkHdr, hkNext := s.stepHK(work.Send.HKs)
	mkEC, ckEcNext := s.stepCK(work.Send.CKec)
	mkPQ, ckPqNext := s.stepPQ(work.Send.CKpq)
	mk := s.hybridMK(mkEC, mkPQ)

	var hdrPT [8]byte
	binary.BigEndian.PutUint32(hdrPT[0:4], work.Send.PN)
	binary.BigEndian.PutUint32(hdrPT[4:8], work.Send.Ns)

	adHdr := HeaderAD(work.Send.SessionID[:], work.Send.ProtocolVersion, work.Send.SuiteID,
		work.Send.DHPub[:], flags, pqBind[:])
	adBody := BodyAD(work.Send.SessionID[:], work.Send.ProtocolVersion, work.Send.SuiteID, pqBind[:])

	msg.DHPub = work.Send.DHPub
	msg.Flags = flags
	msg.PQPrefix = pqPrefix
	msg.HdrCt = s.AEAD.Seal(&mkHdr, &zeroNonce, adHdr, hdrPT[:])
	msg.BodyCt = s.AEAD.Seal(&mk, &zeroNonce, adBody, plaintext)
	wire := EncodeWire(&msg)

	work.Send.HKs = hkNext
	work.Send.CKec = ckEcNext
	work.Send.CKpq = ckPqNext
	work.Send.Ns++

	st.Wipe()
	*st = *work
	return wire, nil
}

// probe kinds: where the authenticating header key came from.
const (
	probeCurrent = iota
	probeSkipped
	probeNext
)

// Receive decodes, authenticates, and opens a suite-2 wire message. Any
// reject leaves st bytewise identical to its pre-call state; mutations only
// land after the body ciphertext authenticates (the commit point).
func (s *Suite) Receive(st *SessionState, wire []byte) ([]byte, error) {
	msg, err := DecodeWire(wire)
	if err != nil {
		return nil, err
	}
	return s.receive(st, &msg)
}

func (s *Suite) receive(st *SessionState, msg *Message) ([]byte, error) {
	work := st.Clone()
	rs := &work.Recv

	pqBind := PQBind(s.Hash, msg.Flags, msg.PQPrefix)
	adHdr := HeaderAD(rs.SessionID[:], rs.ProtocolVersion, rs.SuiteID,
		msg.DHPub[:], msg.Flags, pqBind[:])
	adBody := BodyAD(rs.SessionID[:], rs.ProtocolVersion, rs.SuiteID, pqBind[:])

	// Bounded header probe: the current chain (or, for a new peer ratchet
	// key, the first post-DH position), then the skip cache, then a forward
	// walk. Every AEAD open is counted against one hard budget.
	attempts := 0
	tryOpen := func(mkHdr *[32]byte) ([]byte, bool) {
		if attempts >= MaxHeaderAttempts {
			return nil, false
		}
		attempts++
		pt, err := s.AEAD.Open(mkHdr, &zeroNonce, adHdr, msg.HdrCt)
		if err != nil {
			return nil, false
		}
		return pt, true
	}

	sameChain := msg.DHPub == rs.DHPub

	// chainStep is the found position's offset on the probed chain, hkAfter
	// the header chain key after that position, hdrKeys the header keys
	// derived while stepping past, rkNext the tentative post-DH root key.
	var kind int
	var hdrPT []byte
	var chainStep uint32
	var hkAfter [32]byte
	var hdrKeys [][32]byte
	var rkNext [32]byte
	skippedIdx := -1
	found := false

	// Probe order: the expected key on the relevant chain first (in-order
	// fast path), then the skip cache, then a bounded forward walk for
	// future positions. The walk comes last so old skipped messages never
	// pay for it.
	var walkHK [32]byte
	haveWalk := false

	if sameChain && rs.CKec != zero32 {
		mkHdr, next := s.stepHK(rs.HKr)
		if pt, ok := tryOpen(&mkHdr); ok {
			kind, hdrPT, chainStep, hkAfter = probeCurrent, pt, 0, next
			found = true
		} else {
			hdrKeys = append(hdrKeys, mkHdr)
			walkHK, haveWalk = next, true
			kind = probeCurrent
		}
	}

	if !found && !sameChain {
		dhOut, err := s.DH.DH(work.Send.DHPriv, crypto.X25519Public(msg.DHPub))
		if err != nil {
			return nil, reject.Newf(reject.Internal, "dh: %v", err)
		}
		rkNext = s.rootStep(rs.RK, dhOut)
		hkLabel, _, _ := peerDirLabels(rs.RoleIsA)
		mkHdr, next := s.stepHK(kmac32(s.KMAC, rkNext[:], hkLabel, []byte{0x01}))
		if pt, ok := tryOpen(&mkHdr); ok {
			kind, hdrPT, chainStep, hkAfter = probeNext, pt, 0, next
			found = true
		} else {
			hdrKeys = append(hdrKeys, mkHdr)
			walkHK, haveWalk = next, true
			kind = probeNext
		}
	}

	if !found {
		scanned := 0
		for i := range rs.MKSkipped {
			if scanned >= MaxMKSkippedScan || attempts >= MaxHeaderAttempts {
				break
			}
			e := &rs.MKSkipped[i]
			if e.DHPub != msg.DHPub {
				continue
			}
			scanned++
			if pt, ok := tryOpen(&e.MKHdr); ok {
				kind, hdrPT, skippedIdx = probeSkipped, pt, i
				found = true
				break
			}
		}
	}

	if !found && haveWalk {
		hk := walkHK
		for i := uint32(1); i <= MaxSkip && attempts < MaxHeaderAttempts; i++ {
			mkHdr, next := s.stepHK(hk)
			if pt, ok := tryOpen(&mkHdr); ok {
				hdrPT, chainStep, hkAfter = pt, i, next
				found = true
				break
			}
			hdrKeys = append(hdrKeys, mkHdr)
			hk = next
		}
	}

	if !found {
		return nil, reject.New(reject.S2HdrAuthFail)
	}
	if len(hdrPT) != 8 {
		return nil, reject.FromRatchet("header plaintext length")
	}
	pn := binary.BigEndian.Uint32(hdrPT[0:4])
	n := binary.BigEndian.Uint32(hdrPT[4:8])

	// SCKA pre-checks and seed derivation happen before the body key is
	// assembled: a reseed applies from the carrying message onward, but only
	// commits after the body authenticates.
	var ev ReseedEvent
	var sckaSendSeed, sckaRecvSeed [32]byte
	if msg.HasCtxt {
		advID := uint32(0)
		if msg.HasAdv {
			advID = msg.PQAdvID
		}
		ev = ReseedEvent{PeerAdvID: advID, TargetID: msg.PQTargetID, Ct: msg.PQCt}
		if err := CheckEvent(ev, rs); err != nil {
			return nil, err
		}
		priv, ok := rs.TargetPrivs[ev.TargetID]
		if !ok {
			return nil, reject.Newf(reject.Internal, "known target %d has no private key", ev.TargetID)
		}
		ss, err := s.KEM.Decap(priv, ev.Ct)
		if err != nil {
			return nil, reject.Newf(reject.Internal, "kem decapsulate: %v", err)
		}
		rk := rs.RK
		if kind == probeNext {
			rk = rkNext
		}
		seedA2B, seedB2A := DeriveReseed(s.Hash, s.KMAC, &rk, ev.TargetID, ev.Ct, ss)
		sckaSendSeed, sckaRecvSeed = sendRecvSeeds(rs.RoleIsA, seedA2B, seedB2A)
	}

	var mk [32]byte
	switch kind {
	case probeSkipped:
		e := rs.MKSkipped[skippedIdx]
		if e.N != n {
			return nil, reject.FromRatchet("skipped entry counter mismatch")
		}
		mk = e.MK

	case probeCurrent:
		if n != rs.Nr+chainStep {
			return nil, reject.FromRatchet("header counter mismatch")
		}
		if err := s.advanceRecvChain(rs, msg.DHPub, chainStep, hdrKeys, rs.CKec, rs.CKpqRecv, &mk); err != nil {
			return nil, err
		}

	case probeNext:
		if n != chainStep {
			return nil, reject.FromRatchet("header counter mismatch")
		}
		if err := s.stashOldChain(rs, pn); err != nil {
			return nil, err
		}
		_, ckLabel, pqLabel := peerDirLabels(rs.RoleIsA)
		ckEC := kmac32(s.KMAC, rkNext[:], ckLabel, []byte{0x01})
		ckPQ := rs.CKpqRecv
		if msg.HasCtxt {
			ckPQ = sckaRecvSeed
		} else if ckPQ == zero32 {
			ckPQ = kmac32(s.KMAC, rkNext[:], pqLabel, []byte{0x01})
		}
		rs.DHPub = msg.DHPub
		rs.RK = rkNext
		rs.Nr = 0
		if err := s.advanceRecvChain(rs, msg.DHPub, chainStep, hdrKeys, ckEC, ckPQ, &mk); err != nil {
			return nil, err
		}
		// The peer ratcheted; our next send must do its own DH step.
		work.Send.CKec = zero32
	}

	plaintext, err := s.AEAD.Open(&mk, &zeroNonce, adBody, msg.BodyCt)
	if err != nil {
		return nil, reject.New(reject.S2BodyAuthFail)
	}

	// Commit point: body authenticated, tentative state becomes durable.
	switch kind {
	case probeSkipped:
		rs.MKSkipped = append(rs.MKSkipped[:skippedIdx], rs.MKSkipped[skippedIdx+1:]...)
	default:
		rs.HKr = hkAfter
		rs.Nr = n + 1
	}
	if msg.HasCtxt {
		commitReseed(rs, ev)
		rs.CKpqSend = sckaSendSeed
		work.Send.CKpq = sckaSendSeed
		if kind == probeSkipped {
			rs.CKpqRecv = sckaRecvSeed
		}
	}
	if msg.HasAdv {
		if work.PeerAdvPubs == nil {
			work.PeerAdvPubs = make(map[uint32][]byte)
		}
		if _, seen := work.PeerAdvPubs[msg.PQAdvID]; !seen {
			work.PeerAdvPubs[msg.PQAdvID] = msg.PQAdvPub
		}
	}

	st.Wipe()
	*st = *work
	return plaintext, nil
}

// advanceRecvChain walks the message chains from rs.Nr to the found position,
// stashing the keys of every skipped message, and leaves mk holding the found
// position's hybrid message key and the chain state advanced past it.
// hdrKeys holds the header keys derived while probing past the skipped
// positions.
func (s *Suite) advanceRecvChain(rs *RecvState, dhPub [32]byte, step uint32, hdrKeys [][32]byte, ckEC, ckPQ [32]byte, mk *[32]byte) error {
	if int(step) > len(hdrKeys) {
		return reject.FromRatchet("probe bookkeeping out of sync")
	}
	if len(rs.MKSkipped)+int(step) > MaxMKSkipped {
		return reject.FromRatchet("skipped-key cache full")
	}
	for i := uint32(0); i < step; i++ {
		mkEC, nextEC := s.stepCK(ckEC)
		mkPQ, nextPQ := s.stepPQ(ckPQ)
		rs.MKSkipped = append(rs.MKSkipped, SkippedKey{
			DHPub: dhPub,
			N:     rs.Nr + i,
			MK:    s.hybridMK(mkEC, mkPQ),
			MKHdr: hdrKeys[i],
		})
		ckEC, ckPQ = nextEC, nextPQ
	}
	mkEC, nextEC := s.stepCK(ckEC)
	mkPQ, nextPQ := s.stepPQ(ckPQ)
	*mk = s.hybridMK(mkEC, mkPQ)
	rs.CKec = nextEC
	rs.CKpqRecv = nextPQ
	return nil
}

// stashOldChain derives and caches the keys for the unreceived tail of the
// chain being abandoned by a DH ratchet, then prunes the skip cache to the
// per-header chain bound.
func (s *Suite) stashOldChain(rs *RecvState, pn uint32) error {
	if rs.CKec == zero32 {
		return nil // previous chain never carried traffic
	}
	if pn > rs.Nr && pn-rs.Nr > MaxSkip {
		return reject.FromRatchet("previous-chain skip bound exceeded")
	}
	if pn > rs.Nr {
		count := pn - rs.Nr
		if len(rs.MKSkipped)+int(count) > MaxMKSkipped {
			return reject.FromRatchet("skipped-key cache full")
		}
		hk := rs.HKr
		ckEC, ckPQ := rs.CKec, rs.CKpqRecv
		for i := uint32(0); i < count; i++ {
			mkHdr, hkNext := s.stepHK(hk)
			mkEC, nextEC := s.stepCK(ckEC)
			mkPQ, nextPQ := s.stepPQ(ckPQ)
			rs.MKSkipped = append(rs.MKSkipped, SkippedKey{
				DHPub: rs.DHPub,
				N:     rs.Nr + i,
				MK:    s.hybridMK(mkEC, mkPQ),
				MKHdr: mkHdr,
			})
			hk, ckEC, ckPQ = hkNext, nextEC, nextPQ
		}
		// The PQ chain continues across DH boundaries, so the next chain
		// picks it up past the stashed tail.
		rs.CKpqRecv = ckPQ
	}
	pruneSkippedChains(rs)
	return nil
}

// pruneSkippedChains evicts the oldest chains from the skip cache until at
// most MaxHKSkipped distinct header chains remain.
func pruneSkippedChains(rs *RecvState) {
	for {
		var chains [][32]byte
		for _, e := range rs.MKSkipped {
			known := false
			for _, c := range chains {
				if c == e.DHPub {
					known = true
					break
				}
			}
			if !known {
				chains = append(chains, e.DHPub)
			}
		}
		if len(chains) <= MaxHKSkipped {
			return
		}
		oldest := chains[0]
		kept := rs.MKSkipped[:0]
		for _, e := range rs.MKSkipped {
			if e.DHPub != oldest {
				kept = append(kept, e)
			}
		}
		rs.MKSkipped = kept
	}
}
