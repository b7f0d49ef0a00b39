/*
 * ppc32 - Software-managed MMU.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package mmu

// tlbFlags is the per-entry TLB flag bit-set.
type tlbFlags uint8

const (
	flagMem tlbFlags = 1 << iota
	flagIO
	flagNoPhys
	flagFromBAT
	flagFromPAT
	flagWritable
	flagCSet
)

const tagInvalid = 0xFFFFFFFF

// tlbEntry is one cached translation.
type tlbEntry struct {
	tag   uint32 // vaddr >> 12, or tagInvalid
	flags tlbFlags
	phys  uint32 // physical page base (low 12 bits always zero)
}

func (e *tlbEntry) valid() bool { return e.tag != tagInvalid }

const (
	primarySize     = 4096
	secondarySets   = 1024
	secondaryWays   = 4
)

// tlbSet is one direction (I or D) of one mode's TLB pair: a
// direct-mapped primary plus a 4-way secondary.
type tlbSet struct {
	primary   [primarySize]tlbEntry
	secondary [secondarySets][secondaryWays]tlbEntry
	// lru holds the 2-bit-per-way pseudo-LRU state for each secondary
	// set: a way's bit is set to 0b11/0b10 on access (MRU) and the
	// paired way's low bit is cleared; the victim is the way whose
	// state is lowest (the lowest-numbered one on a tie). This is not a
	// binary-tree pseudo-LRU.
	lru [secondarySets][secondaryWays]uint8
}

func (s *tlbSet) reset() {
	for i := range s.primary {
		s.primary[i].tag = tagInvalid
	}
	for set := range s.secondary {
		for way := range s.secondary[set] {
			s.secondary[set][way].tag = tagInvalid
			s.lru[set][way] = 0
		}
	}
}

func (s *tlbSet) flushTagged(flag tlbFlags) {
	for i := range s.primary {
		if s.primary[i].valid() && s.primary[i].flags&flag != 0 {
			s.primary[i].tag = tagInvalid
		}
	}
	for set := range s.secondary {
		for way := range s.secondary[set] {
			e := &s.secondary[set][way]
			if e.valid() && e.flags&flag != 0 {
				e.tag = tagInvalid
			}
		}
	}
}

func primaryIndex(page uint32) uint32     { return page & (primarySize - 1) }
func secondarySet(page uint32) uint32     { return page & (secondarySets - 1) }

// lookup probes primary then secondary for page, refilling primary from
// a secondary hit by struct-copy.
func (s *tlbSet) lookup(page uint32) (tlbEntry, bool) {
	if e := &s.primary[primaryIndex(page)]; e.tag == page {
		return *e, true
	}
	set := secondarySet(page)
	for way := 0; way < secondaryWays; way++ {
		e := &s.secondary[set][way]
		if e.tag == page {
			s.touch(set, way)
			s.primary[primaryIndex(page)] = *e
			return *e, true
		}
	}
	return tlbEntry{}, false
}

// insert installs a freshly walked translation into both TLB levels.
func (s *tlbSet) insert(page uint32, flags tlbFlags, phys uint32) {
	e := tlbEntry{tag: page, flags: flags, phys: phys}
	s.primary[primaryIndex(page)] = e
	set := secondarySet(page)
	way := s.victim(set)
	s.secondary[set][way] = e
	s.touch(set, way)
}

// victim picks an invalid way first, else the way whose pseudo-LRU
// state is lowest.
func (s *tlbSet) victim(set uint32) int {
	for way := 0; way < secondaryWays; way++ {
		if !s.secondary[set][way].valid() {
			return way
		}
	}
	victim := 0
	for way := 1; way < secondaryWays; way++ {
		if s.lru[set][way] < s.lru[set][victim] {
			victim = way
		}
	}
	return victim
}

func (s *tlbSet) touch(set uint32, way int) {
	if way%2 == 0 {
		s.lru[set][way] = 3
	} else {
		s.lru[set][way] = 2
	}
	sibling := way ^ 1
	s.lru[set][sibling] &^= 1
}

// setChanged marks the C flag cached on the TLB entry so repeat writes
// don't re-walk the page table to set PTE C.
func (s *tlbSet) setChanged(page uint32) {
	if e := &s.primary[primaryIndex(page)]; e.tag == page {
		e.flags |= flagCSet
	}
	set := secondarySet(page)
	for way := range s.secondary[set] {
		if s.secondary[set][way].tag == page {
			s.secondary[set][way].flags |= flagCSet
		}
	}
}
