package rusticated

import "fmt"

// MetricDef describes one leaderboard metric: the canonical key used in
// snapshots, thresholds and display lists, the upstream group and sortBy
// query values, and the label shown in alerts and summaries.
type MetricDef struct {
	Key    string
	Group  string
	SortBy string
	Label  string
}

// DisplayMetrics are the metric keys rendered in the leaderboard, trend and
// digest summaries, in display order. Every key must resolve in the registry.
var DisplayMetrics = []string{
	"pvp_kills",
	"looted_hackable",
	"gathered_sulfur_ore",
	"boom_rocket_basic",
	"looted_bradley_crates",
}

// metricDefs is the full catalog of leaderboard metrics the poller walks.
// Slice order is the fetch order of a poll cycle.
var metricDefs = []MetricDef{
	// pvp
	{"pvp_kills", "pvp", "kill_player", "PvP Kills"},
	{"pvp_deaths", "pvp", "death_player", "PvP Deaths"},

	// pve
	{"pve_sharks", "pve", "killed_shark", "Sharks Killed"},
	{"pve_chickens", "pve", "killed_chicken", "Chickens Killed"},
	{"pve_patrol_heli", "pve", "killed_patrolheli", "Patrol Helicopters Killed"},
	{"pve_bradleys", "pve", "killed_bradley", "Bradleys Killed"},
	{"pve_scientists", "pve", "killed_scientist", "Scientists Killed"},
	{"pve_tunnel_dwellers", "pve", "killed_tunneldweller", "Tunnel Dwellers Killed"},
	{"pve_bears", "pve", "killed_bear", "Bears Killed"},
	{"pve_deer", "pve", "killed_deer", "Deer Killed"},
	{"pve_polar_bears", "pve", "killed_polarbear", "Polar Bears Killed"},
	{"pve_boars", "pve", "killed_boar", "Boars Killed"},
	{"pve_wolves", "pve", "killed_wolf", "Wolves Killed"},
	{"pve_underwater_dwellers", "pve", "killed_underwaterdweller", "Underwater Dwellers Killed"},

	// gambling
	{"gambling_poker_won", "gambling", "gambling_pokerwon", "Poker Winnings"},
	{"gambling_poker_deposited", "gambling", "gambling_pokerdeposited", "Poker Deposited"},
	{"gambling_slot_won", "gambling", "gambling_slotwon", "Slots Winnings"},
	{"gambling_slot_deposited", "gambling", "gambling_slotdeposited", "Slots Deposited"},
	{"gambling_wheel_won", "gambling", "gambling_wheelwon", "Wheel Winnings"},
	{"gambling_wheel_deposited", "gambling", "gambling_wheeldeposited", "Wheel Deposited"},
	{"gambling_blackjack_deposited", "gambling", "gambling_blackjackdeposited", "Blackjack Deposited"},
	{"gambling_blackjack_won", "gambling", "gambling_blackjackwon", "Blackjack Winnings"},

	// looted
	{"looted_oil_barrels", "looted", "looted_oilbarrel", "Oil Barrels Looted"},
	{"looted_crates", "looted", "looted_crate", "Crates Looted"},
	{"looted_hackable", "looted", "looted_hackablecrate", "Hackable Crates Looted"},
	{"looted_barrels", "looted", "looted_barrel", "Barrels Looted"},
	{"looted_bradley_crates", "looted", "looted_bradleycrate", "Bradley Crates Looted"},
	{"looted_heli_crates", "looted", "looted_helicrate", "Heli Crates Looted"},
	{"looted_supply_drops", "looted", "looted_supplydrop", "Supply Drops Looted"},
	{"looted_elite_crates", "looted", "looted_elitecrate", "Elite Crates Looted"},

	// building
	{"build_foundation", "building", "build_foundation", "Foundations Built"},
	{"build_foundation_triangle", "building", "build_foundation.triangle", "Triangle Foundations Built"},
	{"build_floor_triangle", "building", "build_floor.triangle", "Triangle Floors Built"},
	{"build_floor", "building", "build_floor", "Floors Built"},
	{"build_foundation_steps", "building", "build_foundation.steps", "Foundation Steps Built"},
	{"build_floor_frame", "building", "build_floor.frame", "Floor Frames Built"},
	{"build_floor_triangle_frame", "building", "build_floor.triangle.frame", "Triangle Floor Frames Built"},
	{"build_wall_low", "building", "build_wall.low", "Low Walls Built"},
	{"build_wall", "building", "build_wall", "Walls Built"},
	{"build_wall_window", "building", "build_wall.window", "Window Walls Built"},
	{"build_wall_half", "building", "build_wall.half", "Half Walls Built"},
	{"build_wall_frame", "building", "build_wall.frame", "Wall Frames Built"},
	{"build_wall_doorway", "building", "build_wall.doorway", "Doorways Built"},
	{"build_stairs_spiral", "building", "build_stairs.spiral", "Spiral Stairs Built"},
	{"build_stairs_u", "building", "build_stairs.u", "U Stairs Built"},
	{"build_stairs_spiral_triangle", "building", "build_stairs.spiral.triangle", "Spiral Triangle Stairs Built"},
	{"build_stairs_l", "building", "build_stairs.l", "L Stairs Built"},
	{"build_roof", "building", "build_roof", "Roofs Built"},
	{"build_roof_triangle", "building", "build_roof.triangle", "Triangle Roofs Built"},
	{"build_ramp", "building", "build_ramp", "Ramps Built"},

	// item_placed
	{"placed_external_stone_gate", "item_placed", "build_gates.external.high.stone", "Stone External Gates Placed"},
	{"placed_sleeping_bags", "item_placed", "build_sleepingbag_leather_deployed", "Sleeping Bags Placed"},
	{"placed_beds", "item_placed", "build_bed_deployed", "Beds Placed"},
	{"placed_lockers", "item_placed", "build_locker.deployed", "Lockers Placed"},
	{"placed_gun_traps", "item_placed", "build_guntrap.deployed", "Gun Traps Placed"},
	{"placed_tc", "item_placed", "build_cupboard.tool.deployed", "Tool Cupboards Placed"},
	{"placed_vending_machines", "item_placed", "build_vendingmachine.deployed", "Vending Machines Placed"},
	{"placed_small_wood_boxes", "item_placed", "build_woodbox_deployed", "Small Wood Boxes Placed"},
	{"placed_flame_turrets", "item_placed", "build_flameturret.deployed", "Flame Turrets Placed"},
	{"placed_sam_sites", "item_placed", "build_sam_site_turret_deployed", "SAM Sites Placed"},
	{"placed_furnaces", "item_placed", "build_furnace", "Furnaces Placed"},
	{"placed_large_furnaces", "item_placed", "build_furnace.large", "Large Furnaces Placed"},
	{"placed_external_ice_walls", "item_placed", "build_wall.external.high.ice", "High External Ice Walls Placed"},
	{"placed_external_stone_walls", "item_placed", "build_wall.external.high.stone", "High External Stone Walls Placed"},
	{"placed_external_wood_walls", "item_placed", "build_wall.external.high.wood", "High External Wood Walls Placed"},
	{"placed_large_wood_boxes", "item_placed", "build_box.wooden.large", "Large Wood Boxes Placed"},
	{"placed_external_wood_gates", "item_placed", "build_gates.external.high.wood", "Wood External Gates Placed"},

	// recycled
	{"recycled_propanetanks", "recycled", "recycled_propanetank", "Propane Tanks Recycled"},
	{"recycled_techparts", "recycled", "recycled_techparts", "Tech Trash Recycled"},
	{"recycled_smg_bodies", "recycled", "recycled_smgbody", "SMG Bodies Recycled"},
	{"recycled_metal_blades", "recycled", "recycled_metalblade", "Metal Blades Recycled"},
	{"recycled_fuses", "recycled", "recycled_fuse", "Fuses Recycled"},
	{"recycled_sheet_metal", "recycled", "recycled_sheetmetal", "Sheet Metal Recycled"},
	{"recycled_rope", "recycled", "recycled_rope", "Rope Recycled"},
	{"recycled_tarp", "recycled", "recycled_tarp", "Tarp Recycled"},
	{"recycled_sewing_kits", "recycled", "recycled_sewingkit", "Sewing Kits Recycled"},
	{"recycled_roadsigns", "recycled", "recycled_roadsigns", "Road Signs Recycled"},
	{"recycled_metal_springs", "recycled", "recycled_metalspring", "Metal Springs Recycled"},
	{"recycled_semi_bodies", "recycled", "recycled_semibody", "Semi Bodies Recycled"},
	{"recycled_rifle_bodies", "recycled", "recycled_riflebody", "Rifle Bodies Recycled"},
	{"recycled_metal_pipes", "recycled", "recycled_metalpipe", "Metal Pipes Recycled"},
	{"recycled_gears", "recycled", "recycled_gears", "Gears Recycled"},

	// gathered
	{"gathered_metal_ore", "gathered", "gathered_metal.ore", "Metal Ore Gathered"},
	{"gathered_cactus_flesh", "gathered", "gathered_cactusflesh", "Cactus Flesh Gathered"},
	{"gathered_cloth", "gathered", "gathered_cloth", "Cloth Gathered"},
	{"gathered_sulfur_ore", "gathered", "gathered_sulfur.ore", "Sulfur Ore Gathered"},
	{"gathered_hqm_ore", "gathered", "gathered_hq.metal.ore", "HQM Ore Gathered"},
	{"gathered_animal_fat", "gathered", "gathered_fat.animal", "Animal Fat Gathered"},
	{"gathered_leather", "gathered", "gathered_leather", "Leather Gathered"},
	{"gathered_wood", "gathered", "gathered_wood", "Wood Gathered"},
	{"gathered_stone", "gathered", "gathered_stones", "Stone Gathered"},

	// boom
	{"boom_rocket_hv", "boom", "shot_ammo.rocket.hv", "HV Rockets Fired"},
	{"boom_rocket_fire", "boom", "shot_ammo.rocket.fire", "Fire Rockets Fired"},
	{"boom_rocket_basic", "boom", "shot_ammo.rocket.basic", "Rockets Fired"},
	{"boom_beancan", "boom", "thrown_grenade.beancan", "Beancan Grenades Thrown"},
	{"boom_f1", "boom", "thrown_grenade.f1", "F1 Grenades Thrown"},
	{"boom_flashbang", "boom", "thrown_grenade.flashbang", "Flashbangs Thrown"},
	{"boom_molotov", "boom", "thrown_grenade.molotov", "Molotovs Thrown"},
	{"boom_satchel", "boom", "thrown_explosive.satchel", "Satchels Thrown"},
	{"boom_smoke_grenade", "boom", "thrown_grenade.smoke", "Smoke Grenades Thrown"},
	{"boom_catapult_incendiary", "boom", "explode_catapult.ammo.incendiary", "Catapult Incendiary Ammo"},
	{"boom_catapult_boulder", "boom", "explode_catapult.ammo.boulder", "Catapult Boulder Ammo"},
	{"boom_catapult_explosive", "boom", "explode_catapult.ammo.explosive", "Catapult Explosive Ammo"},
	{"boom_c4", "boom", "thrown_explosive.timed", "Timed Explosives Thrown"},
	{"boom_gl_he", "boom", "shot_ammo.grenadelauncher.he", "GL HE Rounds Fired"},
	{"boom_gl_smoke", "boom", "shot_ammo.grenadelauncher.smoke", "GL Smoke Rounds Fired"},
	{"boom_explosive_rifle", "boom", "shot_ammo.rifle.explosive", "Explosive Rifle Rounds Fired"},
}

// Registry is the validated metric catalog. Immutable after construction;
// lookup by key, iteration in definition order.
type Registry struct {
	defs  map[string]MetricDef
	order []string
}

// NewRegistry validates the built-in catalog and indexes it by key. A
// duplicate key or an entry with an empty field is an error, so a bad
// catalog stops the process at startup.
func NewRegistry() (*Registry, error) {
	return newRegistry(metricDefs)
}

func newRegistry(defs []MetricDef) (*Registry, error) {
	r := &Registry{
		defs:  make(map[string]MetricDef, len(defs)),
		order: make([]string, 0, len(defs)),
	}
	for i, d := range defs {
		if d.Key == "" || d.Group == "" || d.SortBy == "" || d.Label == "" {
			return nil, fmt.Errorf("metric def at index %d (key %q) has an empty field", i, d.Key)
		}
		if _, exists := r.defs[d.Key]; exists {
			return nil, fmt.Errorf("duplicate metric key %q", d.Key)
		}
		r.defs[d.Key] = d
		r.order = append(r.order, d.Key)
	}
	return r, nil
}

func (r *Registry) Get(key string) (MetricDef, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// All returns the catalog in definition order.
func (r *Registry) All() []MetricDef {
	out := make([]MetricDef, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.defs[key])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
