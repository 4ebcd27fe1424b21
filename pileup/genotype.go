// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package pileup

import (
	"fmt"
)

// Genotype is an unordered diploid pair of A/C/G/T alleles.  Its integer
// value is the index of the genotype in every per-genotype vector (e.g.
// likelihoods), so the declaration order below must never change.
type Genotype int

const (
	GenotypeAA Genotype = iota
	GenotypeAC
	GenotypeAG
	GenotypeAT
	GenotypeCC
	GenotypeCG
	GenotypeCT
	GenotypeGG
	GenotypeGT
	GenotypeTT
	// NGenotype is the number of diploid genotypes.
	NGenotype = int(iota)
)

// genotypeAlleles[g] holds the two allele enums of g, smaller one first.
var genotypeAlleles = [NGenotype][2]byte{
	{BaseA, BaseA},
	{BaseA, BaseC},
	{BaseA, BaseG},
	{BaseA, BaseT},
	{BaseC, BaseC},
	{BaseC, BaseG},
	{BaseC, BaseT},
	{BaseG, BaseG},
	{BaseG, BaseT},
	{BaseT, BaseT},
}

// enumPairToGenotype maps an (allele, allele) enum pair, in either order, to
// its Genotype.
var enumPairToGenotype [NBase][NBase]Genotype

func init() {
	for g, alleles := range genotypeAlleles {
		enumPairToGenotype[alleles[0]][alleles[1]] = Genotype(g)
		enumPairToGenotype[alleles[1]][alleles[0]] = Genotype(g)
	}
}

// Genotypes returns all genotypes in canonical order.
func Genotypes() [NGenotype]Genotype {
	var gs [NGenotype]Genotype
	for i := range gs {
		gs[i] = Genotype(i)
	}
	return gs
}

// Alleles returns the uppercase ASCII letters of g's two alleles.
func (g Genotype) Alleles() (byte, byte) {
	alleles := genotypeAlleles[g]
	return EnumToASCIITable[alleles[0]], EnumToASCIITable[alleles[1]]
}

// IsHet returns true iff g's two alleles differ.
func (g Genotype) IsHet() bool {
	alleles := genotypeAlleles[g]
	return alleles[0] != alleles[1]
}

// String returns the two-letter name of g, e.g. "AC".
func (g Genotype) String() string {
	if g < 0 || int(g) >= NGenotype {
		return fmt.Sprintf("Genotype(%d)", int(g))
	}
	a1, a2 := g.Alleles()
	return string([]byte{a1, a2})
}

// ParseGenotype converts a two-letter, case-insensitive allele string (in
// either allele order) to a Genotype.
func ParseGenotype(s string) (Genotype, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("ParseGenotype: can only handle diploid genotypes: %q", s)
	}
	e1 := ASCIIToEnumTable[s[0]]
	e2 := ASCIIToEnumTable[s[1]]
	if e1 == BaseX || e2 == BaseX {
		return 0, fmt.Errorf("ParseGenotype: alleles must be A, C, G, or T: %q", s)
	}
	return enumPairToGenotype[e1][e2], nil
}
