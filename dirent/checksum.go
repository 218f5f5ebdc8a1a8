package dirent

// ShortNameChecksum computes the checksum stored in every long-name
// fragment so it can be matched against the short entry it decorates
// (spec section 4.7). Bit-exact with
// original_source/fat-bits/src/dir.rs's checksum: for each of the 11 raw
// 8.3 name bytes, rotate the running sum right by one bit and add the
// byte, wrapping on overflow.
func ShortNameChecksum(rawName [11]byte) uint8 {
	var sum uint8
	for _, b := range rawName {
		sum = ((sum & 1) << 7) | (sum >> 1)
		sum += b
	}
	return sum
}
