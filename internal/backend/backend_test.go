package backend

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("no entropy")
}

func TestSelfTest(t *testing.T) {
	if err := SelfTest(&Native{}); err != nil {
		t.Fatalf("Native backend failed self test: %s", err)
	}
}

func TestSelfTestNoEntropy(t *testing.T) {
	err := SelfTest(&Native{Rand: failingReader{}})
	if !errors.Is(err, ErrBackendInit) {
		t.Errorf("Expected ErrBackendInit, got %v", err)
	}
}

func TestInitConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = Init()
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("Init call %d failed: %s", i, err)
		}
	}
	b1, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	b2, _ := Default()
	if b1 != b2 {
		t.Error("Default returned different backends")
	}
}

func TestBlockRoundTrip(t *testing.T) {
	var n Native
	key, _ := hex.DecodeString("2b7e151628aed2a6abf7158809cf4f3c")
	plaintext := make([]byte, BlockSize)
	ct, err := n.EncryptBlock(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	// RFC 4493 L value: AES-128(K, 0^128)
	if hex.EncodeToString(ct) != "7df76b0c1ab899b33e42f047b91b546f" {
		t.Errorf("Unexpected ciphertext %02x", ct)
	}
	pt, err := n.DecryptBlock(key, ct)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Errorf("Decryption did not invert encryption: %02x", pt)
	}
}

func TestBlockSizes(t *testing.T) {
	var n Native
	if _, err := n.EncryptBlock(make([]byte, 24), make([]byte, BlockSize)); err != ErrKeySize {
		t.Errorf("Expected ErrKeySize, got %v", err)
	}
	if _, err := n.DecryptBlock(make([]byte, KeySize), make([]byte, 15)); err != ErrBlockSize {
		t.Errorf("Expected ErrBlockSize, got %v", err)
	}
}

func TestRandom(t *testing.T) {
	var n Native
	a := make([]byte, 32)
	b := make([]byte, 32)
	if err := n.Random(a); err != nil {
		t.Fatal(err)
	}
	if err := n.Random(b); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("Two random draws were identical")
	}
}
