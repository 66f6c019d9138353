package scheduler

import (
	"testing"

	"github.com/jsharp6968/mala/internal/toolchain"
)

func TestToolchainSignatureJoinsRawSpecs(t *testing.T) {
	specs, err := toolchain.ParseChain([]string{"exiftool,-S,-j,-P", "ssdeep,-sbc"})
	if err != nil {
		t.Fatalf("ParseChain returned error: %v", err)
	}

	got := toolchainSignature(specs)
	want := "exiftool,-S,-j,-P|ssdeep,-sbc"
	if got != want {
		t.Errorf("toolchainSignature() = %q, want %q", got, want)
	}
}

func TestToolchainSignatureEmpty(t *testing.T) {
	if got := toolchainSignature(nil); got != "" {
		t.Errorf("toolchainSignature(nil) = %q, want empty", got)
	}
}

func TestDestinationForStripsExtension(t *testing.T) {
	got := destinationFor("/corpus/archives/sample-001.7z", "/corpus/extracted")
	want := "/corpus/extracted/sample-001"
	if got != want {
		t.Errorf("destinationFor() = %q, want %q", got, want)
	}
}
