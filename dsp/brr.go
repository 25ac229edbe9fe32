package dsp

// decodeBRR decodes four samples from the byte pair at brrOffset in the
// current block into the voice's ring. tBRRByte holds the first byte and
// tBRRHeader the block header, both fetched during V3.
func (d *DSP) decodeBRR(v *voice) {
	nybbles := d.tBRRByte<<8 | int(d.ram[(v.brrAddr+v.brrOffset+1)&0xFFFF])
	header := d.tBRRHeader

	pos := v.bufPos
	v.bufPos += 4
	if v.bufPos >= brrBufSize {
		v.bufPos = 0
	}

	shift := uint(header >> 4)
	filter := header & 0x0C
	for end := pos + 4; pos < end; pos++ {
		// Sign-extend the top nybble
		s := int(int16(nybbles)) >> 12

		s = (s << shift) >> 1
		if shift >= 0xD {
			// Shifts 13-15 keep only the sign: 0 or -0x800
			s = (s >> 25) << 11
		}

		// History is stored doubled, so these are 2*sample
		p1 := v.buf[pos+brrBufSize-1]
		p2 := v.buf[pos+brrBufSize-2] >> 1
		if filter >= 8 {
			s += p1
			s -= p2
			if filter == 8 {
				// s += p1 * 0.953125 - p2 * 0.46875
				s += p2 >> 4
				s += (p1 * -3) >> 6
			} else {
				// s += p1 * 0.8984375 - p2 * 0.40625
				s += (p1 * -13) >> 7
				s += (p2 * 3) >> 4
			}
		} else if filter != 0 {
			// s += p1 * 0.46875
			s += p1 >> 1
			s += (-p1) >> 5
		}

		s = clamp16(s)
		s = int(int16(s * 2))
		v.buf[pos] = s
		v.buf[pos+brrBufSize] = s

		nybbles <<= 4
	}
}
