package cpu

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestPackUint(t *testing.T) {
	tests := []struct {
		size int
		val  uint64
		be   []byte
	}{
		{1, 0xab, []byte{0xab}},
		{2, 0xabcd, []byte{0xab, 0xcd}},
		{4, 0xdeadbeef, []byte{0xde, 0xad, 0xbe, 0xef}},
	}
	for _, v := range tests {
		buf, err := PackUint(binary.BigEndian, v.size, nil, v.val)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buf, v.be) {
			t.Errorf("PackUint(%d, %#x) = %x, expecting %x", v.size, v.val, buf, v.be)
		}
		val, err := UnpackUint(binary.BigEndian, v.size, buf)
		if err != nil {
			t.Fatal(err)
		}
		if val != v.val {
			t.Errorf("UnpackUint(%x) = %#x, expecting %#x", buf, val, v.val)
		}
	}
	if _, err := PackUint(binary.BigEndian, 3, nil, 0); err == nil {
		t.Error("PackUint accepted size 3")
	}
	if _, err := UnpackUint(binary.BigEndian, 4, []byte{1}); err == nil {
		t.Error("UnpackUint accepted short buffer")
	}
}

func TestMaskUint(t *testing.T) {
	if v := MaskUint(1, 0x1234); v != 0x34 {
		t.Errorf("MaskUint(1) = %#x", v)
	}
	if v := MaskUint(2, 0x123456); v != 0x3456 {
		t.Errorf("MaskUint(2) = %#x", v)
	}
	if v := MaskUint(4, 0x1_2345_6789); v != 0x23456789 {
		t.Errorf("MaskUint(4) = %#x", v)
	}
	for _, size := range []int{0, 3, 8, 16} {
		if ValidSize(size) {
			t.Errorf("ValidSize(%d) = true", size)
		}
	}
}
