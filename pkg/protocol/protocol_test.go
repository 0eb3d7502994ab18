package protocol_test

import (
	"encoding/hex"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/aacskit/aacs/mocks"
	"github.com/aacskit/aacs/pkg/protocol"
)

func fromHex(s string) []byte {
	b, err := hex.DecodeString(s)
	Expect(err).ToNot(HaveOccurred())
	return b
}

const (
	hostScalar  = "0102030405060708090a0b0c0d0e0f1011121314"
	hostPoint   = "67cecfefb41b0a03202bee53cf923806948de55b51784c3d5122671645401cd09d013ea62c451aa7"
	driveScalar = "1112131415161718191a1b1c1d1e1f2021222324"
	drivePoint  = "2823cc5dc219ef4a92aa4b7be9d929521bf440a69310af0bf960f50c1a6e61966484fe414e8aa5ed"
	hostCert    = "0201005ca1a2a3a4a5a6000067cecfefb41b0a03202bee53cf923806948de55b" +
		"51784c3d5122671645401cd09d013ea62c451aa717ceccac01de5b25eaf1a739bbcc37c697599c741639f5" +
		"c5d3235cceaf8e825ad31c86b6bf329979"
)

func handshakeNonce() []byte {
	nonce := make([]byte, protocol.NonceLength)
	for i := range nonce {
		nonce[i] = byte(0x20 + i)
	}
	return nonce
}

var _ = Describe("Protocol", func() {
	BeforeEach(func() {
		Expect(protocol.Init()).To(Succeed())
	})

	Describe("Init", func() {
		It("is safe to call concurrently", func() {
			var wg sync.WaitGroup
			errs := make([]error, 16)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					errs[i] = protocol.Init()
				}(i)
			}
			wg.Wait()
			for _, err := range errs {
				Expect(err).ToNot(HaveOccurred())
			}
		})

		It("provides a default engine", func() {
			engine, err := protocol.DefaultEngine()
			Expect(err).ToNot(HaveOccurred())
			Expect(engine.VerifyAACSLA(make([]byte, protocol.SignatureLength), []byte("data"))).To(MatchError(protocol.ErrSignatureBuildFailure))
		})
	})

	Describe("AESG3", func() {
		It("derives the three keys", func() {
			keys, err := protocol.AESG3(fromHex("000102030405060708090a0b0c0d0e0f"), protocol.SelectAll)
			Expect(err).ToNot(HaveOccurred())
			Expect(hex.EncodeToString(keys.Left)).To(Equal("b8f75fade361302b63b246bf1b7952db"))
			Expect(hex.EncodeToString(keys.Processing)).To(Equal("e420bfc173933c945685f000cd3b46ea"))
			Expect(hex.EncodeToString(keys.Right)).To(Equal("1ccd3a1fa0bf7241ac25612a35602366"))
		})

		It("is deterministic", func() {
			key := fromHex("00000000000000000000000000000000")
			first, err := protocol.AESG3(key, protocol.SelectAll)
			Expect(err).ToNot(HaveOccurred())
			second, err := protocol.AESG3(key, protocol.SelectAll)
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("computes only the selected keys", func() {
			keys, err := protocol.AESG3(fromHex("000102030405060708090a0b0c0d0e0f"), protocol.SelectLeft)
			Expect(err).ToNot(HaveOccurred())
			Expect(keys.Left).ToNot(BeNil())
			Expect(keys.Processing).To(BeNil())
			Expect(keys.Right).To(BeNil())
		})
	})

	Describe("CMAC16", func() {
		It("matches RFC 4493", func() {
			mac, err := protocol.CMAC16(fromHex("6bc1bee22e409f96e93d7e117393172a"), fromHex("2b7e151628aed2a6abf7158809cf4f3c"))
			Expect(err).ToNot(HaveOccurred())
			Expect(hex.EncodeToString(mac)).To(Equal("070a16b46b4d4144f79bdd9dd04a287c"))
		})

		It("rejects partial blocks", func() {
			_, err := protocol.CMAC16(make([]byte, 8), make([]byte, 16))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Sign and Verify", func() {
		It("produces the recorded signature", func() {
			sig, err := protocol.Sign(fromHex(hostCert), fromHex(hostScalar), handshakeNonce(), fromHex(drivePoint))
			Expect(err).ToNot(HaveOccurred())
			Expect(hex.EncodeToString(sig)).To(Equal(
				"661178fed902d613e198e3cf2b8d7a26ce0290e64a351a6debea9f35deac3603db8132e3e12d1252"))
		})

		It("round trips with a fresh key pair", func() {
			priv, pub, err := protocol.CreateHostKeyPair()
			Expect(err).ToNot(HaveOccurred())
			cert := fromHex(hostCert)
			copy(cert[12:], pub)

			nonce, err := protocol.CreateNonce(protocol.NonceLength)
			Expect(err).ToNot(HaveOccurred())
			sig, err := protocol.Sign(cert, priv, nonce, fromHex(drivePoint))
			Expect(err).ToNot(HaveOccurred())
			Expect(sig).To(HaveLen(protocol.SignatureLength))
			Expect(protocol.Verify(sig, append(nonce, fromHex(drivePoint)...), cert)).To(BeTrue())
		})

		It("rejects any modified signature byte", func() {
			data := append(handshakeNonce(), fromHex(drivePoint)...)
			sig, err := protocol.Sign(fromHex(hostCert), fromHex(hostScalar), handshakeNonce(), fromHex(drivePoint))
			Expect(err).ToNot(HaveOccurred())
			Expect(protocol.Verify(sig, data, fromHex(hostCert))).To(BeTrue())
			for i := range sig {
				tampered := append([]byte{}, sig...)
				tampered[i] ^= 0x04
				Expect(protocol.Verify(tampered, data, fromHex(hostCert))).To(BeFalse())
			}
		})

		It("treats malformed input as a failed verification", func() {
			Expect(protocol.Verify(nil, nil, nil)).To(BeFalse())
			Expect(protocol.Verify(make([]byte, 40), []byte("data"), fromHex(hostCert))).To(BeFalse())
		})

		It("returns no signature on failure", func() {
			sig, err := protocol.Sign(fromHex(hostCert)[:20], fromHex(hostScalar), handshakeNonce(), fromHex(drivePoint))
			Expect(err).To(MatchError(protocol.ErrKeyBuildFailure))
			Expect(sig).To(BeNil())
		})
	})

	Describe("VerifyAACSLA", func() {
		It("rejects signatures from other keys", func() {
			sig, err := protocol.Sign(fromHex(hostCert), fromHex(hostScalar), handshakeNonce(), fromHex(drivePoint))
			Expect(err).ToNot(HaveOccurred())
			Expect(protocol.VerifyAACSLA(sig, append(handshakeNonce(), fromHex(drivePoint)...))).To(BeFalse())
		})
	})

	Describe("Certificates", func() {
		It("rejects certificates not signed by the licensing authority", func() {
			Expect(protocol.VerifyCert(fromHex(hostCert))).To(BeFalse())
			Expect(protocol.VerifyHostCert(fromHex(hostCert))).To(BeFalse())
		})

		It("accepts certificates from an explicit issuer", func() {
			engine := protocol.NewEngine(nativeBackend())
			Expect(engine.VerifyCertIssuedBy(fromHex(hostCert), fromHex(drivePoint))).To(Succeed())
			Expect(engine.VerifyCertIssuedBy(fromHex(hostCert), fromHex(hostPoint))).To(MatchError(protocol.ErrVerificationFailure))
			Expect(engine.VerifyCertIssuedBy(fromHex(hostCert), fromHex(hostPoint)[1:])).To(MatchError(protocol.ErrKeyBuildFailure))
		})

		It("reports format errors before checking signatures", func() {
			ctrl := gomock.NewController(GinkgoT())
			engine := protocol.NewEngine(mocks.NewMockBackend(ctrl))

			badLength := fromHex(hostCert)
			badLength[2] = 0x01
			Expect(engine.VerifyCert(badLength)).To(MatchError(protocol.ErrInvalidCertificateFormat))
			Expect(engine.VerifyDriveCert(fromHex(hostCert))).To(MatchError(protocol.ErrInvalidCertificateFormat))
			Expect(protocol.VerifyDriveCert(fromHex(hostCert))).To(BeFalse())
		})
	})

	Describe("TitleHash", func() {
		It("returns the SHA-1 digest", func() {
			digest, err := protocol.TitleHash([]byte("abc"))
			Expect(err).ToNot(HaveOccurred())
			Expect(hex.EncodeToString(digest)).To(Equal("a9993e364706816aba3e25717850c26c9cd0d89d"))
		})
	})

	Describe("CreateNonce", func() {
		It("returns the requested number of bytes", func() {
			nonce, err := protocol.CreateNonce(32)
			Expect(err).ToNot(HaveOccurred())
			Expect(nonce).To(HaveLen(32))
			other, err := protocol.CreateNonce(32)
			Expect(err).ToNot(HaveOccurred())
			Expect(other).ToNot(Equal(nonce))
		})

		It("propagates entropy failures", func() {
			ctrl := gomock.NewController(GinkgoT())
			b := mocks.NewMockBackend(ctrl)
			errEntropy := errors.New("no entropy")
			b.EXPECT().Random(gomock.Any()).Return(errEntropy)
			_, err := protocol.NewEngine(b).CreateNonce(protocol.NonceLength)
			Expect(err).To(MatchError(errEntropy))
		})
	})

	Describe("CreateBusKey", func() {
		It("derives the recorded key", func() {
			busKey, err := protocol.CreateBusKey(fromHex(hostScalar), fromHex(drivePoint))
			Expect(err).ToNot(HaveOccurred())
			Expect(hex.EncodeToString(busKey)).To(Equal("147a95cedeafdef528c61ab578666ed4"))
		})

		It("is symmetric", func() {
			hostPriv, hostPub, err := protocol.CreateHostKeyPair()
			Expect(err).ToNot(HaveOccurred())
			drivePriv, drivePub, err := protocol.CreateHostKeyPair()
			Expect(err).ToNot(HaveOccurred())

			k1, err := protocol.CreateBusKey(hostPriv, drivePub)
			Expect(err).ToNot(HaveOccurred())
			k2, err := protocol.CreateBusKey(drivePriv, hostPub)
			Expect(err).ToNot(HaveOccurred())
			Expect(k1).To(HaveLen(protocol.BusKeyLength))
			Expect(k1).To(Equal(k2))
		})

		It("rejects points that are not on the curve", func() {
			point := fromHex(drivePoint)
			point[0] ^= 0x10
			_, err := protocol.CreateBusKey(fromHex(hostScalar), point)
			Expect(err).To(MatchError(protocol.ErrInvalidPoint))
		})

		It("rejects a zero private key", func() {
			_, err := protocol.CreateBusKey(make([]byte, protocol.PrivateKeyLength), fromHex(drivePoint))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CreateHostKeyPair", func() {
		It("returns a public point matching the private key", func() {
			priv, pub, err := protocol.CreateHostKeyPair()
			Expect(err).ToNot(HaveOccurred())
			Expect(priv).To(HaveLen(protocol.PrivateKeyLength))
			Expect(pub).To(HaveLen(protocol.PublicPointLength))

			skey, err := protocol.UnmarshalHostKey(priv)
			Expect(err).ToNot(HaveOccurred())
			Expect(skey.PublicBytes()).To(Equal(pub))
		})

		It("reproduces the recorded public point for a fixed scalar", func() {
			engine := protocol.NewEngine(fixedRandom(fromHex(driveScalar)))
			_, pub, err := engine.CreateHostKeyPair()
			Expect(err).ToNot(HaveOccurred())
			Expect(hex.EncodeToString(pub)).To(Equal(drivePoint))
		})

		It("fails without entropy", func() {
			ctrl := gomock.NewController(GinkgoT())
			b := mocks.NewMockBackend(ctrl)
			b.EXPECT().Random(gomock.Any()).Return(errors.New("no entropy"))
			_, _, err := protocol.NewEngine(b).CreateHostKeyPair()
			Expect(err).To(MatchError(protocol.ErrKeyBuildFailure))
		})
	})
})
