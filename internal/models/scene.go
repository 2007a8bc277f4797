package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Position is a point in scene space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Cube is a single cube placed in the scene.
type Cube struct {
	Position Position `json:"position"`
	UUID     string   `json:"uuid"`
	IsFix    bool     `json:"isFix"`
}

// HingePoint connects two cubes along a labelled edge.
type HingePoint struct {
	Cube1UUID string   `json:"cube1UUID"`
	Cube2UUID string   `json:"cube2UUID"`
	Edge      string   `json:"edge"`
	Position  Position `json:"position"`
}

// SceneDocument is the per-user cube scene.
//
// SelectedCubes and the cube ids of HingePoints are not required to reference
// entries of Cubes; only their shape is validated.
type SceneDocument struct {
	Cubes         []Cube                `json:"cubes"`
	SelectedCubes []string              `json:"selectedCubes"`
	HingePoints   map[string]HingePoint `json:"hingePoints"`
}

// EmptySceneDocument returns the document served to users who never saved one.
func EmptySceneDocument() SceneDocument {
	return SceneDocument{
		Cubes:         []Cube{},
		SelectedCubes: []string{},
		HingePoints:   map[string]HingePoint{},
	}
}

// Normalize replaces nil collections with empty ones so the document never
// serializes a null.
func (d *SceneDocument) Normalize() {
	if d.Cubes == nil {
		d.Cubes = []Cube{}
	}
	if d.SelectedCubes == nil {
		d.SelectedCubes = []string{}
	}
	if d.HingePoints == nil {
		d.HingePoints = map[string]HingePoint{}
	}
}

// MarshalCanonical returns the canonical JSON form stored in the database.
// encoding/json sorts map keys, so equal documents produce equal bytes.
func (d SceneDocument) MarshalCanonical() ([]byte, error) {
	d.Normalize()
	return json.Marshal(d)
}

// Validate checks the semantic constraints of an already typed document.
func (d SceneDocument) Validate() error {
	var ve ValidationErrors

	for i, cube := range d.Cubes {
		path := fmt.Sprintf("cubes[%d]", i)
		if cube.UUID == "" {
			ve.Add(path+".uuid", "must not be empty")
		}
		validatePosition(cube.Position, path+".position", &ve)
	}

	for i, id := range d.SelectedCubes {
		if id == "" {
			ve.Add(fmt.Sprintf("selectedCubes[%d]", i), "must not be empty")
		}
	}

	for _, key := range sortedKeys(d.HingePoints) {
		hinge := d.HingePoints[key]
		path := "hingePoints." + key
		if key == "" {
			ve.Add("hingePoints", "hinge id must not be empty")
		}
		if hinge.Cube1UUID == "" {
			ve.Add(path+".cube1UUID", "must not be empty")
		}
		if hinge.Cube2UUID == "" {
			ve.Add(path+".cube2UUID", "must not be empty")
		}
		validatePosition(hinge.Position, path+".position", &ve)
	}

	return ve.Err()
}

func validatePosition(p Position, path string, ve *ValidationErrors) {
	for _, c := range []struct {
		name  string
		value float64
	}{{"x", p.X}, {"y", p.Y}, {"z", p.Z}} {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			ve.Add(path+"."+c.name, "must be a finite number")
		}
	}
}

// ParseSceneDocument strictly decodes a scene payload. Every field with a wrong
// type or a missing required value is reported with its path, e.g.
// "cubes[0].position.x". Missing top-level collections default to empty and a
// missing isFix defaults to false.
func ParseSceneDocument(data []byte) (SceneDocument, error) {
	var ve ValidationErrors

	if len(bytes.TrimSpace(data)) == 0 {
		ve.Add("document", "is required")
		return SceneDocument{}, ve
	}
	if !json.Valid(data) {
		ve.Add("document", "malformed JSON")
		return SceneDocument{}, ve
	}

	top, ok := decodeObject(data, "document", &ve)
	if !ok {
		return SceneDocument{}, ve
	}

	doc := EmptySceneDocument()

	if raw, present := top["cubes"]; present && !isNull(raw) {
		if items, ok := decodeArray(raw, "cubes", &ve); ok {
			for i, item := range items {
				if cube, ok := parseCube(item, fmt.Sprintf("cubes[%d]", i), &ve); ok {
					doc.Cubes = append(doc.Cubes, cube)
				}
			}
		}
	}

	if raw, present := top["selectedCubes"]; present && !isNull(raw) {
		if items, ok := decodeArray(raw, "selectedCubes", &ve); ok {
			for i, item := range items {
				if id, ok := decodeString(item, fmt.Sprintf("selectedCubes[%d]", i), &ve); ok {
					doc.SelectedCubes = append(doc.SelectedCubes, id)
				}
			}
		}
	}

	if raw, present := top["hingePoints"]; present && !isNull(raw) {
		if hinges, ok := decodeObject(raw, "hingePoints", &ve); ok {
			for _, key := range sortedKeys(hinges) {
				if hinge, ok := parseHingePoint(hinges[key], "hingePoints."+key, &ve); ok {
					doc.HingePoints[key] = hinge
				}
			}
		}
	}

	if err := ve.Err(); err != nil {
		return SceneDocument{}, err
	}
	if err := doc.Validate(); err != nil {
		return SceneDocument{}, err
	}
	return doc, nil
}

func parseCube(raw json.RawMessage, path string, ve *ValidationErrors) (Cube, bool) {
	obj, ok := decodeObject(raw, path, ve)
	if !ok {
		return Cube{}, false
	}

	var cube Cube
	valid := true

	if rawPos, ok := requireField(obj, "position", path, ve); ok {
		cube.Position, ok = parsePosition(rawPos, path+".position", ve)
		valid = valid && ok
	} else {
		valid = false
	}

	if rawID, ok := requireField(obj, "uuid", path, ve); ok {
		cube.UUID, ok = decodeString(rawID, path+".uuid", ve)
		valid = valid && ok
	} else {
		valid = false
	}

	if rawFix, present := obj["isFix"]; present && !isNull(rawFix) {
		var ok bool
		cube.IsFix, ok = decodeBool(rawFix, path+".isFix", ve)
		valid = valid && ok
	}

	return cube, valid
}

func parseHingePoint(raw json.RawMessage, path string, ve *ValidationErrors) (HingePoint, bool) {
	obj, ok := decodeObject(raw, path, ve)
	if !ok {
		return HingePoint{}, false
	}

	var hinge HingePoint
	valid := true

	fields := []struct {
		key string
		dst *string
	}{
		{"cube1UUID", &hinge.Cube1UUID},
		{"cube2UUID", &hinge.Cube2UUID},
		{"edge", &hinge.Edge},
	}
	for _, f := range fields {
		rawValue, ok := requireField(obj, f.key, path, ve)
		if !ok {
			valid = false
			continue
		}
		*f.dst, ok = decodeString(rawValue, path+"."+f.key, ve)
		valid = valid && ok
	}

	if rawPos, ok := requireField(obj, "position", path, ve); ok {
		hinge.Position, ok = parsePosition(rawPos, path+".position", ve)
		valid = valid && ok
	} else {
		valid = false
	}

	return hinge, valid
}

func parsePosition(raw json.RawMessage, path string, ve *ValidationErrors) (Position, bool) {
	obj, ok := decodeObject(raw, path, ve)
	if !ok {
		return Position{}, false
	}

	var pos Position
	valid := true
	coords := []struct {
		key string
		dst *float64
	}{
		{"x", &pos.X},
		{"y", &pos.Y},
		{"z", &pos.Z},
	}
	for _, c := range coords {
		rawValue, ok := requireField(obj, c.key, path, ve)
		if !ok {
			valid = false
			continue
		}
		*c.dst, ok = decodeNumber(rawValue, path+"."+c.key, ve)
		valid = valid && ok
	}
	return pos, valid
}

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func requireField(obj map[string]json.RawMessage, key, path string, ve *ValidationErrors) (json.RawMessage, bool) {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		ve.Add(path+"."+key, "is required")
		return nil, false
	}
	return raw, true
}

func decodeObject(raw json.RawMessage, path string, ve *ValidationErrors) (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		ve.Add(path, "must be an object")
		return nil, false
	}
	return obj, true
}

func decodeArray(raw json.RawMessage, path string, ve *ValidationErrors) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		ve.Add(path, "must be an array")
		return nil, false
	}
	return items, true
}

func decodeString(raw json.RawMessage, path string, ve *ValidationErrors) (string, bool) {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		ve.Add(path, "must be a string")
		return "", false
	}
	return s, true
}

func decodeNumber(raw json.RawMessage, path string, ve *ValidationErrors) (float64, bool) {
	var f float64
	if json.Unmarshal(raw, &f) != nil {
		ve.Add(path, "must be a number")
		return 0, false
	}
	return f, true
}

func decodeBool(raw json.RawMessage, path string, ve *ValidationErrors) (bool, bool) {
	var b bool
	if json.Unmarshal(raw, &b) != nil {
		ve.Add(path, "must be a boolean")
		return false, false
	}
	return b, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
