package tiletype

import "fmt"

type Shape uint8

const (
	ShapeNone Shape = iota
	ShapeEmpty
	ShapeFloor
	ShapeBoulder
	ShapePebbles
	ShapeWall
	ShapeFortification
	ShapeStairUp
	ShapeStairDown
	ShapeStairUpDown
	ShapeRamp
	ShapeRampTop
	ShapeBrookBed
	ShapeBrookTop
	ShapeBranch
	ShapeTrunkBranch
	ShapeTwig
	ShapeSapling
	ShapeShrub
	ShapeEndlessPit
	shapeCount
)

var shapeNames = [shapeCount]string{
	"NONE", "EMPTY", "FLOOR", "BOULDER", "PEBBLES", "WALL", "FORTIFICATION",
	"STAIR_UP", "STAIR_DOWN", "STAIR_UPDOWN", "RAMP", "RAMP_TOP", "BROOK_BED",
	"BROOK_TOP", "BRANCH", "TRUNK_BRANCH", "TWIG", "SAPLING", "SHRUB", "ENDLESS_PIT",
}

func (s Shape) String() string {
	if s < shapeCount {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// Material is the material category of a tile type, not a concrete material
type Material uint8

const (
	MaterialNone Material = iota
	MaterialAir
	MaterialSoil
	MaterialStone
	MaterialFeature
	MaterialLavaStone
	MaterialMineral
	MaterialFrozenLiquid
	MaterialConstruction
	MaterialGrassLight
	MaterialGrassDark
	MaterialGrassDry
	MaterialGrassDead
	MaterialPlant
	MaterialHFS
	MaterialCampfire
	MaterialFire
	MaterialAsh
	MaterialMagma
	MaterialDriftwood
	MaterialPool
	MaterialBrook
	MaterialRiver
	MaterialRoot
	MaterialTree
	MaterialMushroom
	MaterialUnderworldGate
	materialCount
)

var materialNames = [materialCount]string{
	"NONE", "AIR", "SOIL", "STONE", "FEATURE", "LAVA_STONE", "MINERAL",
	"FROZEN_LIQUID", "CONSTRUCTION", "GRASS_LIGHT", "GRASS_DARK", "GRASS_DRY",
	"GRASS_DEAD", "PLANT", "HFS", "CAMPFIRE", "FIRE", "ASH", "MAGMA",
	"DRIFTWOOD", "POOL", "BROOK", "RIVER", "ROOT", "TREE", "MUSHROOM",
	"UNDERWORLD_GATE",
}

func (m Material) String() string {
	if m < materialCount {
		return materialNames[m]
	}
	return fmt.Sprintf("Material(%d)", uint8(m))
}

// IsGrass covers the four grass categories
func (m Material) IsGrass() bool {
	return m >= MaterialGrassLight && m <= MaterialGrassDead
}

type Variant uint8

const (
	VariantNone Variant = iota
	Variant1
	Variant2
	Variant3
	Variant4
	variantCount
)

var variantNames = [variantCount]string{"NONE", "VAR_1", "VAR_2", "VAR_3", "VAR_4"}

func (v Variant) String() string {
	if v < variantCount {
		return variantNames[v]
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

type Special uint8

const (
	SpecialNone Special = iota
	SpecialNormal
	SpecialRiverSource
	SpecialWaterfall
	SpecialSmooth
	SpecialFurrowed
	SpecialWet
	SpecialDead
	SpecialWorn1
	SpecialWorn2
	SpecialWorn3
	SpecialTrack
	specialCount
)

var specialNames = [specialCount]string{
	"NONE", "NORMAL", "RIVER_SOURCE", "WATERFALL", "SMOOTH", "FURROWED",
	"WET", "DEAD", "WORN_1", "WORN_2", "WORN_3", "TRACK",
}

func (s Special) String() string {
	if s < specialCount {
		return specialNames[s]
	}
	return fmt.Sprintf("Special(%d)", uint8(s))
}

func lookup(names []string, s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	for i, n := range names {
		if n == s {
			return i, true
		}
	}
	return 0, false
}

func ParseShape(s string) (Shape, error) {
	i, ok := lookup(shapeNames[:], s)
	if !ok {
		return ShapeNone, fmt.Errorf("unknown tile shape %q", s)
	}
	return Shape(i), nil
}

func ParseMaterial(s string) (Material, error) {
	i, ok := lookup(materialNames[:], s)
	if !ok {
		return MaterialNone, fmt.Errorf("unknown tile material %q", s)
	}
	return Material(i), nil
}

func ParseVariant(s string) (Variant, error) {
	i, ok := lookup(variantNames[:], s)
	if !ok {
		return VariantNone, fmt.Errorf("unknown tile variant %q", s)
	}
	return Variant(i), nil
}

func ParseSpecial(s string) (Special, error) {
	i, ok := lookup(specialNames[:], s)
	if !ok {
		return SpecialNone, fmt.Errorf("unknown tile special %q", s)
	}
	return Special(i), nil
}
