// Package tiletype describes the target's tile type enumeration: for every
// value, its shape, material category, variant and special flag.
package tiletype

import (
	"fmt"
	"sort"

	"simhook/symbols"
)

// TileType is the raw value stored in a map block's tile grid
type TileType int16

// None is returned when no tile type matches
const None TileType = -1

const (
	Void TileType = iota
	RampTop
	OpenSpace
	Chasm
	Ashes1
	Ashes2
	Fire
	Campfire
	MagmaFlow
	Driftwood
	MurkyPool
	MurkyPoolRamp
	RiverFloor
	BrookBed
	BrookTop
	UnderworldGate
	FeatureWall
	FeatureFloor1
	FeatureFloorSmooth
	LavaWall
	LavaFloor1
	LavaFloorSmooth
	LavaRamp
	LavaBoulder
	StoneWall
	StoneWallSmooth
	StoneFloor1
	StoneFloor2
	StoneFloor3
	StoneFloor4
	StoneFloorSmooth
	StoneRamp
	StoneStairUp
	StoneStairDown
	StoneStairUpDown
	StoneFortification
	StoneBoulder
	StonePebbles1
	MineralWall
	MineralWallSmooth
	MineralFloor1
	MineralFloorSmooth
	MineralRamp
	MineralBoulder
	SoilWall
	SoilFloor1
	SoilFloor2
	SoilWetFloor1
	SoilRamp
	FrozenWall
	FrozenFloor1
	FrozenRamp
	FrozenFloorSmooth
	ConstructedWall
	ConstructedFloor
	ConstructedRamp
	ConstructedFortification
	ConstructedStairUpDown
	GrassLightFloor1
	GrassDarkFloor1
	GrassDryFloor1
	GrassDeadFloor1
	GrassLightRamp
	Shrub
	ShrubDead
	Sapling
	TreeTrunkPillar
	TreeBranches
	TreeTwigs
	TreeRoots
	MushroomCap
	HFSWall
	builtinCount
)

type Attr struct {
	Name     string
	Shape    Shape
	Material Material
	Variant  Variant
	Special  Special
}

var builtin = [builtinCount]Attr{
	Void:                     {"Void", ShapeNone, MaterialNone, VariantNone, SpecialNone},
	RampTop:                  {"RampTop", ShapeRampTop, MaterialAir, VariantNone, SpecialNone},
	OpenSpace:                {"OpenSpace", ShapeEmpty, MaterialAir, VariantNone, SpecialNone},
	Chasm:                    {"Chasm", ShapeEndlessPit, MaterialAir, VariantNone, SpecialNone},
	Ashes1:                   {"Ashes1", ShapeFloor, MaterialAsh, Variant1, SpecialNone},
	Ashes2:                   {"Ashes2", ShapeFloor, MaterialAsh, Variant2, SpecialNone},
	Fire:                     {"Fire", ShapeFloor, MaterialFire, VariantNone, SpecialNone},
	Campfire:                 {"Campfire", ShapeFloor, MaterialCampfire, VariantNone, SpecialNone},
	MagmaFlow:                {"MagmaFlow", ShapeFloor, MaterialMagma, VariantNone, SpecialNone},
	Driftwood:                {"Driftwood", ShapeFloor, MaterialDriftwood, VariantNone, SpecialNone},
	MurkyPool:                {"MurkyPool", ShapeFloor, MaterialPool, VariantNone, SpecialNone},
	MurkyPoolRamp:            {"MurkyPoolRamp", ShapeRamp, MaterialPool, VariantNone, SpecialNone},
	RiverFloor:               {"RiverFloor", ShapeFloor, MaterialRiver, VariantNone, SpecialNormal},
	BrookBed:                 {"BrookBed", ShapeBrookBed, MaterialBrook, VariantNone, SpecialNone},
	BrookTop:                 {"BrookTop", ShapeBrookTop, MaterialBrook, VariantNone, SpecialNone},
	UnderworldGate:           {"UnderworldGate", ShapeStairDown, MaterialUnderworldGate, VariantNone, SpecialNone},
	FeatureWall:              {"FeatureWall", ShapeWall, MaterialFeature, VariantNone, SpecialNormal},
	FeatureFloor1:            {"FeatureFloor1", ShapeFloor, MaterialFeature, Variant1, SpecialNormal},
	FeatureFloorSmooth:       {"FeatureFloorSmooth", ShapeFloor, MaterialFeature, VariantNone, SpecialSmooth},
	LavaWall:                 {"LavaWall", ShapeWall, MaterialLavaStone, VariantNone, SpecialNormal},
	LavaFloor1:               {"LavaFloor1", ShapeFloor, MaterialLavaStone, Variant1, SpecialNormal},
	LavaFloorSmooth:          {"LavaFloorSmooth", ShapeFloor, MaterialLavaStone, VariantNone, SpecialSmooth},
	LavaRamp:                 {"LavaRamp", ShapeRamp, MaterialLavaStone, VariantNone, SpecialNone},
	LavaBoulder:              {"LavaBoulder", ShapeBoulder, MaterialLavaStone, VariantNone, SpecialNone},
	StoneWall:                {"StoneWall", ShapeWall, MaterialStone, VariantNone, SpecialNormal},
	StoneWallSmooth:          {"StoneWallSmooth", ShapeWall, MaterialStone, VariantNone, SpecialSmooth},
	StoneFloor1:              {"StoneFloor1", ShapeFloor, MaterialStone, Variant1, SpecialNormal},
	StoneFloor2:              {"StoneFloor2", ShapeFloor, MaterialStone, Variant2, SpecialNormal},
	StoneFloor3:              {"StoneFloor3", ShapeFloor, MaterialStone, Variant3, SpecialNormal},
	StoneFloor4:              {"StoneFloor4", ShapeFloor, MaterialStone, Variant4, SpecialNormal},
	StoneFloorSmooth:         {"StoneFloorSmooth", ShapeFloor, MaterialStone, VariantNone, SpecialSmooth},
	StoneRamp:                {"StoneRamp", ShapeRamp, MaterialStone, VariantNone, SpecialNone},
	StoneStairUp:             {"StoneStairU", ShapeStairUp, MaterialStone, VariantNone, SpecialNone},
	StoneStairDown:           {"StoneStairD", ShapeStairDown, MaterialStone, VariantNone, SpecialNone},
	StoneStairUpDown:         {"StoneStairUD", ShapeStairUpDown, MaterialStone, VariantNone, SpecialNone},
	StoneFortification:       {"StoneFortification", ShapeFortification, MaterialStone, VariantNone, SpecialNone},
	StoneBoulder:             {"StoneBoulder", ShapeBoulder, MaterialStone, VariantNone, SpecialNone},
	StonePebbles1:            {"StonePebbles1", ShapePebbles, MaterialStone, Variant1, SpecialNone},
	MineralWall:              {"MineralWall", ShapeWall, MaterialMineral, VariantNone, SpecialNormal},
	MineralWallSmooth:        {"MineralWallSmooth", ShapeWall, MaterialMineral, VariantNone, SpecialSmooth},
	MineralFloor1:            {"MineralFloor1", ShapeFloor, MaterialMineral, Variant1, SpecialNormal},
	MineralFloorSmooth:       {"MineralFloorSmooth", ShapeFloor, MaterialMineral, VariantNone, SpecialSmooth},
	MineralRamp:              {"MineralRamp", ShapeRamp, MaterialMineral, VariantNone, SpecialNone},
	MineralBoulder:           {"MineralBoulder", ShapeBoulder, MaterialMineral, VariantNone, SpecialNone},
	SoilWall:                 {"SoilWall", ShapeWall, MaterialSoil, VariantNone, SpecialNormal},
	SoilFloor1:               {"SoilFloor1", ShapeFloor, MaterialSoil, Variant1, SpecialNormal},
	SoilFloor2:               {"SoilFloor2", ShapeFloor, MaterialSoil, Variant2, SpecialNormal},
	SoilWetFloor1:            {"SoilWetFloor1", ShapeFloor, MaterialSoil, Variant1, SpecialWet},
	SoilRamp:                 {"SoilRamp", ShapeRamp, MaterialSoil, VariantNone, SpecialNone},
	FrozenWall:               {"FrozenWall", ShapeWall, MaterialFrozenLiquid, VariantNone, SpecialNormal},
	FrozenFloor1:             {"FrozenFloor1", ShapeFloor, MaterialFrozenLiquid, Variant1, SpecialNormal},
	FrozenRamp:               {"FrozenRamp", ShapeRamp, MaterialFrozenLiquid, VariantNone, SpecialNone},
	FrozenFloorSmooth:        {"FrozenFloorSmooth", ShapeFloor, MaterialFrozenLiquid, VariantNone, SpecialSmooth},
	ConstructedWall:          {"ConstructedWall", ShapeWall, MaterialConstruction, VariantNone, SpecialNone},
	ConstructedFloor:         {"ConstructedFloor", ShapeFloor, MaterialConstruction, VariantNone, SpecialNone},
	ConstructedRamp:          {"ConstructedRamp", ShapeRamp, MaterialConstruction, VariantNone, SpecialNone},
	ConstructedFortification: {"ConstructedFortification", ShapeFortification, MaterialConstruction, VariantNone, SpecialNone},
	ConstructedStairUpDown:   {"ConstructedStairUD", ShapeStairUpDown, MaterialConstruction, VariantNone, SpecialNone},
	GrassLightFloor1:         {"GrassLightFloor1", ShapeFloor, MaterialGrassLight, Variant1, SpecialNone},
	GrassDarkFloor1:          {"GrassDarkFloor1", ShapeFloor, MaterialGrassDark, Variant1, SpecialNone},
	GrassDryFloor1:           {"GrassDryFloor1", ShapeFloor, MaterialGrassDry, Variant1, SpecialNone},
	GrassDeadFloor1:          {"GrassDeadFloor1", ShapeFloor, MaterialGrassDead, Variant1, SpecialNone},
	GrassLightRamp:           {"GrassLightRamp", ShapeRamp, MaterialGrassLight, VariantNone, SpecialNone},
	Shrub:                    {"Shrub", ShapeShrub, MaterialPlant, VariantNone, SpecialNormal},
	ShrubDead:                {"ShrubDead", ShapeShrub, MaterialPlant, VariantNone, SpecialDead},
	Sapling:                  {"Sapling", ShapeSapling, MaterialPlant, VariantNone, SpecialNormal},
	TreeTrunkPillar:          {"TreeTrunkPillar", ShapeWall, MaterialTree, VariantNone, SpecialNone},
	TreeBranches:             {"TreeBranches", ShapeBranch, MaterialTree, VariantNone, SpecialNone},
	TreeTwigs:                {"TreeTwigs", ShapeTwig, MaterialTree, VariantNone, SpecialNone},
	TreeRoots:                {"TreeRoots", ShapeWall, MaterialRoot, VariantNone, SpecialNone},
	MushroomCap:              {"MushroomCap", ShapeWall, MaterialMushroom, VariantNone, SpecialNone},
	HFSWall:                  {"HFSWall", ShapeWall, MaterialHFS, VariantNone, SpecialNone},
}

// Table maps tile type values to attributes. Values missing from the table
// have the zero Attr.
type Table struct {
	attrs map[TileType]Attr
	order []TileType
}

// Default returns a fresh table holding the built-in tile types
func Default() *Table {
	t := &Table{attrs: make(map[TileType]Attr, builtinCount)}
	for i, a := range builtin {
		t.set(TileType(i), a)
	}
	return t
}

func (t *Table) set(tt TileType, a Attr) {
	if _, ok := t.attrs[tt]; !ok {
		t.order = append(t.order, tt)
		sort.Slice(t.order, func(i, j int) bool { return t.order[i] < t.order[j] })
	}
	t.attrs[tt] = a
}

// Apply overrides or adds entries from a symbol table
func (t *Table) Apply(defs []symbols.TileTypeDef) error {
	for _, d := range defs {
		var (
			a   = Attr{Name: d.Name}
			err error
		)
		if a.Shape, err = ParseShape(d.Shape); err != nil {
			return fmt.Errorf("tiletype %d: %w", d.ID, err)
		}
		if a.Material, err = ParseMaterial(d.Material); err != nil {
			return fmt.Errorf("tiletype %d: %w", d.ID, err)
		}
		if a.Variant, err = ParseVariant(d.Variant); err != nil {
			return fmt.Errorf("tiletype %d: %w", d.ID, err)
		}
		if a.Special, err = ParseSpecial(d.Special); err != nil {
			return fmt.Errorf("tiletype %d: %w", d.ID, err)
		}
		if a.Name == "" {
			a.Name = fmt.Sprintf("TileType%d", d.ID)
		}
		t.set(TileType(d.ID), a)
	}
	return nil
}

func (t *Table) Attr(tt TileType) (Attr, bool) {
	a, ok := t.attrs[tt]
	return a, ok
}

func (t *Table) Shape(tt TileType) Shape {
	return t.attrs[tt].Shape
}

func (t *Table) Material(tt TileType) Material {
	return t.attrs[tt].Material
}

func (t *Table) Name(tt TileType) string {
	if a, ok := t.attrs[tt]; ok {
		return a.Name
	}
	return fmt.Sprintf("TileType(%d)", int16(tt))
}

func (t *Table) Len() int {
	return len(t.attrs)
}

// FindSimilar returns the tile type with the given shape and material that
// best matches variant and special, or None. Special outweighs variant;
// ties go to the lowest value.
func (t *Table) FindSimilar(shape Shape, material Material, variant Variant, special Special) TileType {
	best, bestScore := None, -1
	for _, tt := range t.order {
		a := t.attrs[tt]
		if a.Shape != shape || a.Material != material {
			continue
		}
		score := 0
		if a.Special == special {
			score += 2
		}
		if a.Variant == variant {
			score++
		}
		if score > bestScore {
			best, bestScore = tt, score
		}
	}
	return best
}

// Retarget keeps the shape, variant and special of tt and swaps its
// material category, e.g. the tile left behind when a construction is
// removed from ice.
func (t *Table) Retarget(tt TileType, material Material) TileType {
	a, ok := t.attrs[tt]
	if !ok {
		return None
	}
	return t.FindSimilar(a.Shape, material, a.Variant, a.Special)
}
